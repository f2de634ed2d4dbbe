package dto

import "github.com/spec-kit/user-directory/internal/domain"

// CreateUserRequest payload for POST /api/users. ID is a pointer so that a
// missing id is distinguishable from id 0.
type CreateUserRequest struct {
	ID    *int64 `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,max=320"`
}

// UpdateUserRequest payload for PATCH /api/users/:id. Any id in the body is
// ignored; the path decides which row changes.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,max=320"`
}

// UserResponse is the wire form of a user.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PageMeta describes the page that was returned.
type PageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// UserPageResponse is the envelope of GET /api/users.
type UserPageResponse struct {
	Data []UserResponse `json:"data"`
	Meta PageMeta       `json:"meta"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewUserPageResponse converts a page of domain users.
func NewUserPageResponse(rows []domain.User, total int64, page, limit int) UserPageResponse {
	data := make([]UserResponse, 0, len(rows))
	for i := range rows {
		data = append(data, NewUserResponse(&rows[i]))
	}
	return UserPageResponse{
		Data: data,
		Meta: PageMeta{Total: total, Page: page, Limit: limit},
	}
}
