// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	ErrUnauthorized  = errors.New("invalid username or password")
	ErrUsernameTaken = errors.New("username already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrBookNotFound  = errors.New("book not found")
)

// Validation errors.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username exceeds maximum length")
	ErrUsernameInvalid  = errors.New("username contains invalid characters")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title exceeds maximum length")
	ErrUserIDRequired   = errors.New("user id is required")
)

// IsValidationError reports whether err is one of the input validation errors.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameRequired,
		ErrUsernameTooLong,
		ErrUsernameInvalid,
		ErrPasswordRequired,
		ErrPasswordTooLong,
		ErrTitleRequired,
		ErrTitleTooLong,
		ErrUserIDRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
