package analytics

import (
	"fmt"
	"unicode/utf8"
)

const (
	maxIDLength = 64
	// maxTitleRunes matches the title limit the search service enforces.
	maxTitleRunes = 256
)

// ValidateSearchEventPayload validates search event payload fields.
// Title limits are counted in characters, not bytes.
func ValidateSearchEventPayload(payload SearchEventPayload) error {
	if payload.SearchID == "" {
		return fmt.Errorf("sid is required")
	}
	if len(payload.SearchID) > maxIDLength {
		return fmt.Errorf("sid too long")
	}
	if len(payload.UserID) > maxIDLength {
		return fmt.Errorf("uid too long")
	}
	if payload.QueryTitle == "" {
		return fmt.Errorf("q is required")
	}
	if utf8.RuneCountInString(payload.QueryTitle) > maxTitleRunes {
		return fmt.Errorf("q too long")
	}
	if payload.SearchedAt <= 0 {
		return fmt.Errorf("t must be set")
	}
	return nil
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
