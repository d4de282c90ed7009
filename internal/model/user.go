// Package model defines domain entities for the application.
package model

import "time"

// User is a registered account.
type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	CredentialSecret string     `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
