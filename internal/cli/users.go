package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/user-directory/pkg/client"
)

func newUsersCmd(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage users",
	}

	cmd.AddCommand(newUsersListCmd(cc))
	cmd.AddCommand(newUsersGetCmd(cc))
	cmd.AddCommand(newUsersCreateCmd(cc))
	cmd.AddCommand(newUsersUpdateCmd(cc))
	cmd.AddCommand(newUsersDeleteCmd(cc))

	return cmd
}

func newUsersListCmd(cc *cliContext) *cobra.Command {
	var (
		page, limit int
		search      string
		sortField   string
		order       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = cc.defaultPageSize()
			}
			state := client.NewTableState(limit)
			state.SetSearch(search)
			state.SetPage(page)
			if sortField != "" {
				state.ToggleSort(sortField)
				if strings.EqualFold(order, string(client.SortDesc)) {
					state.ToggleSort(sortField)
				}
			}

			result, err := cc.apiClient.ListUsers(cmd.Context(), state.Request())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			format := cc.outputFormat()
			if format != "table" {
				return printOutput(cmd.OutOrStdout(), format, result)
			}

			t := NewTable("ID", "NAME", "EMAIL")
			for _, u := range result.Data {
				t.AddRow(strconv.FormatInt(u.ID, 10), truncate(u.Name, 40), truncate(u.Email, 50))
			}
			out := cmd.OutOrStdout()
			if err := t.Render(out); err != nil {
				return err
			}
			if len(result.Data) == 0 {
				fmt.Fprintln(out, "No users found.")
			}
			fmt.Fprintf(out, "\nPage %d of %d (%d users)\n",
				result.Meta.Page, client.PageCount(result.Meta.Total, result.Meta.Limit), result.Meta.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (default from config)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on name or email")
	cmd.Flags().StringVar(&sortField, "sort", "", "sort column: id, name, email")
	cmd.Flags().StringVar(&order, "order", "asc", "sort order: asc, desc")

	return cmd
}

func newUsersGetCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get user details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			user, err := cc.apiClient.GetUser(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}
			return printUser(cmd, cc, user)
		},
	}
}

func newUsersCreateCmd(cc *cliContext) *cobra.Command {
	var (
		id          int64
		name, email string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cc.apiClient.CreateUser(cmd.Context(), client.CreateUserRequest{ID: id, Name: name, Email: email})
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			return printUser(cmd, cc, user)
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUsersUpdateCmd(cc *cliContext) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the name and email of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			user, err := cc.apiClient.UpdateUser(cmd.Context(), id, client.UpdateUserRequest{Name: name, Email: email})
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
			return printUser(cmd, cc, user)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUsersDeleteCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			if err := cc.apiClient.DeleteUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d deleted\n", id)
			return nil
		},
	}
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", raw)
	}
	return id, nil
}

func printUser(cmd *cobra.Command, cc *cliContext, user *client.User) error {
	format := cc.outputFormat()
	if format != "table" {
		return printOutput(cmd.OutOrStdout(), format, user)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:    %d\n", user.ID)
	fmt.Fprintf(out, "Name:  %s\n", user.Name)
	fmt.Fprintf(out, "Email: %s\n", user.Email)
	return nil
}
