package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spec-kit/user-directory/pkg/client"
)

// cliContext carries state shared by all subcommands of one invocation.
type cliContext struct {
	v         *viper.Viper
	cfgFile   string
	serverURL string
	output    string
	apiClient *client.Client
}

// Execute runs the usersctl command tree.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the usersctl command tree.
func NewRootCmd() *cobra.Command {
	cc := &cliContext{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "usersctl",
		Short: "usersctl - command-line access to the user directory",
		Long: `usersctl lists, searches, creates, updates and deletes users
through the user directory REST API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cc.initConfig()
			return cc.initClient()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cc.cfgFile, "config", "", "config file (default $HOME/.usersctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&cc.output, "output", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&cc.serverURL, "server", "", "server URL (overrides config)")

	rootCmd.AddCommand(newUsersCmd(cc))

	return rootCmd
}

func (cc *cliContext) initConfig() {
	v := cc.v
	if cc.cfgFile != "" {
		v.SetConfigFile(cc.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".usersctl"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("USERSCTL")
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://localhost:5000")
	v.SetDefault("output", "table")
	v.SetDefault("page_size", client.DefaultTablePageSize)

	_ = v.ReadInConfig()
}

func (cc *cliContext) initClient() error {
	url := cc.v.GetString("server_url")
	if cc.serverURL != "" {
		url = cc.serverURL
	}
	if url == "" {
		return fmt.Errorf("no server URL configured")
	}

	cc.apiClient = client.NewClient(client.Config{
		BaseURL: url,
	})
	return nil
}

func (cc *cliContext) outputFormat() string {
	if cc.output != "" {
		return strings.ToLower(cc.output)
	}
	return strings.ToLower(cc.v.GetString("output"))
}

func (cc *cliContext) defaultPageSize() int {
	return cc.v.GetInt("page_size")
}
