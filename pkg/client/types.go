package client

// User is a directory record as returned by the API.
type User struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// PageMeta describes the page the server resolved. Page and Limit are the
// effective values after the server coerced the request.
type PageMeta struct {
	Total int64 `json:"total" yaml:"total"`
	Page  int   `json:"page" yaml:"page"`
	Limit int   `json:"limit" yaml:"limit"`
}

// UserPage is the envelope of a list call.
type UserPage struct {
	Data []User   `json:"data" yaml:"data"`
	Meta PageMeta `json:"meta" yaml:"meta"`
}

// CreateUserRequest creates a user with a caller-chosen id.
type CreateUserRequest struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// UpdateUserRequest replaces the name and email of a user.
type UpdateUserRequest struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

type deleteResponse struct {
	Success bool `json:"success" yaml:"success"`
}
