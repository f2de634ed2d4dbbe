package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-directory/internal/api/dto"
	"github.com/spec-kit/user-directory/internal/query"
	"github.com/spec-kit/user-directory/internal/service"
	apperrors "github.com/spec-kit/user-directory/pkg/util/errorutil"
)

// UsersHandler exposes the user directory endpoints.
type UsersHandler struct {
	service   *service.UserService
	validator *dto.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, validator *dto.Validator) *UsersHandler {
	return &UsersHandler{service: userService, validator: validator}
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	result, err := h.service.ListUsers(c.UserContext(), parsePageQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserPageResponse(result.Rows, result.Total, result.Page, result.PageSize))
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// CreateUser POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.UserContext(), req.ID, service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// UpdateUser PATCH /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	user, err := h.service.UpdateUser(c.UserContext(), id, service.UserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// DeleteUser DELETE /api/users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.DeleteResponse{Success: true})
}

// parsePageQuery reads page, limit, search, sort and order. Values that do
// not parse are left zero and coerced to defaults by the service.
func parsePageQuery(c *fiber.Ctx) query.PageRequest {
	return query.PageRequest{
		Page:          parseInt(c.Query("page"), 0),
		PageSize:      parseInt(c.Query("limit"), 0),
		Search:        c.Query("search"),
		SortField:     c.Query("sort", query.DefaultSortField),
		SortDirection: query.Direction(c.Query("order", string(query.Asc))),
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("id must be an integer", map[string]any{"id": raw})
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
