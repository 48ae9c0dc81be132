package auth

import (
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// SessionClaims represents the claims stored in a PASETO session token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to an admin account.
// The store record remains authoritative; handlers re-check it for
// anything destructive.
func (c *SessionClaims) IsAdmin() bool {
	return c.Role == string(domain.RoleAdmin)
}
