package session

import "time"

// Record is the persisted proof of a successful login. It lives encrypted in
// a single storage slot and is the only thing the route guard trusts.
type Record struct {
	User      string    `json:"user"`
	Role      string    `json:"role"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
	RenewedAt time.Time `json:"renewedAt,omitzero"`

	// APIToken is present only for API-backed logins (APIMode true).
	// Local-fallback logins carry no token.
	APIToken string `json:"apiToken,omitempty"`
	APIMode  bool   `json:"apiMode"`

	// APITokenExpiresAt is the backend-reported token expiry. Zero for
	// local-fallback logins and for opaque tokens with no known expiry.
	APITokenExpiresAt time.Time `json:"apiTokenExpiresAt,omitzero"`

	// SessionID is a random 128-bit identifier, stable across renewals.
	SessionID string `json:"sessionId"`
}

// Remaining reports the session life left at the given instant.
func (r Record) Remaining(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}

// Expired reports whether the record is past its expiry at the given instant.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
