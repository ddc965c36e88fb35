package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticated reports whether token should be treated as a signed-in
// session. Opaque tokens count as signed in. JWTs are parsed without
// verification, only to drop tokens whose exp has passed; the server
// stays the authority.
func Authenticated(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return now.Before(exp.Time)
}
