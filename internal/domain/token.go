package domain

import "time"

// CallerIdentity is the (user id, role) pair resolved from a validated
// access token. It lives only for the duration of one request.
type CallerIdentity struct {
	UserID int64
	Role   string
}

// RefreshToken is the server-side view of a refresh credential. The opaque
// value handed to the client is never stored; only its fingerprint is.
type RefreshToken struct {
	Fingerprint string
	UserID      int64
	ExpiresAt   time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
