package domain

// User is a directory entry. ID is chosen by the caller and never changes
// after creation.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
