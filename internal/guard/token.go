package guard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired pre-checks a bearer token's exp claim without verifying the
// signature; verification authority stays with the identity API. A token
// that cannot be parsed, or carries no expiry, is not reported expired
// here — upstream verify is the final word either way.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
