package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxUsernameLength is the maximum username length in characters.
	MaxUsernameLength = 64

	// MaxPasswordLength is the maximum password length in bytes.
	MaxPasswordLength = 256

	// MaxTitleLength is the maximum search title length in characters.
	MaxTitleLength = 256
)

// normalizeUsername trims surrounding whitespace and validates the result.
// Letters, digits and any printable punctuation are allowed; control and
// space characters are not.
func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	for _, r := range username {
		if unicode.IsControl(r) || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", ErrUsernameInvalid
		}
	}
	return username, nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// normalizeTitle returns the title to send to the provider.
func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
