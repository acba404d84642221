// Package auth resolves API keys to the acting user's identity. Identity is
// ambient context for the engine, but it is always passed as an explicit
// parameter rather than smuggled through globals.
package auth

import "context"

// Role is the coarse permission level attached to an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller of an engine operation.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity may perform administrative operations.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// APIKeyInfo holds the stored data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	UserID  string
	Role    Role
	Name    string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
