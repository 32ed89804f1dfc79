package remoteapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginOutcome is the tagged result of a remote credential verification.
// Either Success is true and the token fields are populated, or Success is
// false and Reason says why. It is never an error; the caller decides
// whether to fall back to local verification.
type LoginOutcome struct {
	Success   bool
	Token     string
	User      string
	Role      string
	ExpiresAt time.Time

	// Reason is the soft-failure cause ("network error", "status 503",
	// "rejected", ...). Empty on success.
	Reason string
}

func SoftFailure(reason string) LoginOutcome {
	return LoginOutcome{Reason: reason}
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Returns the zero time when the token is opaque or carries no
// expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
