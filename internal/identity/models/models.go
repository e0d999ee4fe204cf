// Package models holds the identity records behind the login flow.
package models

import "time"

// Identity is a registered participant. The handle doubles as the login name
// and as the claimant handle on exclusivity claims.
type Identity struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
}
