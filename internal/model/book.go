// Package model defines domain entities for the application.
package model

import "strings"

const (
	// DefaultTitle is used when the provider omits a title.
	DefaultTitle = "Untitled"

	// DefaultAuthor is the single author used when the provider lists none.
	DefaultAuthor = "Unknown"

	// DefaultDescription is used when the provider omits a description.
	DefaultDescription = "No description available"

	// ShortDescriptionLimit is the number of characters kept in DescriptionShort.
	ShortDescriptionLimit = 120

	// Ellipsis is appended to a truncated short description.
	Ellipsis = "…"
)

// Book is the canonical, display-ready book derived from a provider response.
// It is only ever stored embedded in a SearchRecord.
type Book struct {
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	ImageURL         string   `json:"image"`
	DescriptionShort string   `json:"description_short"`
	DescriptionLong  string   `json:"description_long"`
}

// VolumeInfo is the raw metadata payload of a single provider result.
// Every field is optional.
type VolumeInfo struct {
	Title       *string     `json:"title,omitempty"`
	Authors     []string    `json:"authors,omitempty"`
	Description *string     `json:"description,omitempty"`
	ImageLinks  *ImageLinks `json:"imageLinks,omitempty"`
}

// ImageLinks holds the cover image URLs of a volume.
type ImageLinks struct {
	SmallThumbnail *string `json:"smallThumbnail,omitempty"`
	Thumbnail      *string `json:"thumbnail,omitempty"`
}

// NormalizeVolume converts raw provider metadata into a Book.
// It never fails; missing fields fall back to defaults.
func NormalizeVolume(v *VolumeInfo) Book {
	if v == nil {
		v = &VolumeInfo{}
	}

	book := Book{
		Title:    DefaultTitle,
		Authors:  []string{DefaultAuthor},
		ImageURL: "",
	}

	if v.Title != nil && *v.Title != "" {
		book.Title = *v.Title
	}
	if len(v.Authors) > 0 {
		book.Authors = append([]string(nil), v.Authors...)
	}
	if v.ImageLinks != nil && v.ImageLinks.Thumbnail != nil {
		book.ImageURL = SecureImageURL(*v.ImageLinks.Thumbnail)
	}

	description := DefaultDescription
	if v.Description != nil && *v.Description != "" {
		description = *v.Description
	}
	book.DescriptionLong = description
	book.DescriptionShort = ShortenDescription(description)

	return book
}

// SecureImageURL upgrades a leading http:// scheme to https://.
func SecureImageURL(raw string) string {
	if rest, ok := strings.CutPrefix(raw, "http://"); ok {
		return "https://" + rest
	}
	return raw
}

// ShortenDescription truncates s to ShortDescriptionLimit characters
// (code points, not bytes) and appends Ellipsis when anything was cut.
func ShortenDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= ShortDescriptionLimit {
		return s
	}
	return string(runes[:ShortDescriptionLimit]) + Ellipsis
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (b Book) Clone() Book {
	b.Authors = append([]string(nil), b.Authors...)
	return b
}
