package backend

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("backend rejected the bearer token")
	ErrUnavailable        = errors.New("backend unavailable")
)

// RejectedError is a business failure declared by the backend, such as
// insufficient funds. Message is the backend's wording and is shown verbatim.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by backend (%d): %s", e.Status, e.Message)
}
