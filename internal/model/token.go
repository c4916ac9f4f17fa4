package model

import (
	"strings"
	"time"
)

// BearerPrefix is prepended to the raw token to form the Authorization header value.
const BearerPrefix = "Bearer "

// AuthToken is the credential triple of a session. It is replaced as a whole
// on refresh and never updated field by field.
type AuthToken struct {
	RefreshToken string    `json:"refreshtoken"`
	Token        string    `json:"token"`
	Expiration   time.Time `json:"expiration"`
}

// NewAuthToken builds a token from a login or refresh response received at now.
func NewAuthToken(resp *LoginResponse, now time.Time) AuthToken {
	return AuthToken{
		RefreshToken: resp.RefreshToken,
		Token:        BearerPrefix + strings.TrimPrefix(resp.Token, BearerPrefix),
		Expiration:   now.Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
	}
}

// Valid reports whether the token may still be used at now.
func (t AuthToken) Valid(now time.Time) bool {
	return now.Before(t.Expiration)
}

// IsZero reports whether the token carries no credentials.
func (t AuthToken) IsZero() bool {
	return t.RefreshToken == "" && t.Token == ""
}

// Credentials are the login username and password. They are never persisted.
type Credentials struct {
	Username string
	Password string
}

// String redacts the password.
func (c Credentials) String() string {
	return c.Username + ":***"
}

// Page is one batch of an offset/limit paginated query.
type Page[T any] struct {
	Items []T
	Total int
}
