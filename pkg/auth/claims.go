// Package auth provides JWT-based authentication for ekaya-content.
// Tokens are validated against JWKS endpoints or a shared HS256 secret,
// and the token subject identifies the content owner.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims accepted by the API.
// Subject (sub) is the owner of content projects.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the claims carry any of roles.
func (c *Claims) HasRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
