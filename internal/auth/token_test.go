package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager("test-secret", "content-service", "content-service-clients", time.Minute)
	require.NoError(t, err)
	return tm
}

func TestTokenManagerIssueValidate(t *testing.T) {
	tm := newTestManager(t)

	token, expiresAt, err := tm.Issue(42, "Admin")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	caller, err := tm.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), caller.UserID)
	require.Equal(t, "Admin", caller.Role)
}

func TestTokenManagerRejectsInvalidTokens(t *testing.T) {
	tm := newTestManager(t)
	token, _, err := tm.Issue(42, "Admin")
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := tm.Validate("garbage")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + flipChar(parts[1]) + "." + parts[2]
		_, err := tm.Validate(tampered)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + "." + parts[1] + "." + flipChar(parts[2])
		_, err := tm.Validate(tampered)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("other-secret", "content-service", "content-service-clients", time.Minute)
		require.NoError(t, err)
		_, err = other.Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenManager("test-secret", "someone-else", "content-service-clients", time.Minute)
		require.NoError(t, err)
		_, err = other.Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewTokenManager("test-secret", "content-service", "other-clients", time.Minute)
		require.NoError(t, err)
		_, err = other.Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManagerExpiry(t *testing.T) {
	tm := newTestManager(t)
	base := time.Now()
	tm.now = func() time.Time { return base }

	token, _, err := tm.Issue(42, "Admin")
	require.NoError(t, err)

	// still valid just before expiry
	tm.now = func() time.Time { return base.Add(time.Minute - time.Second) }
	_, err = tm.Validate(token)
	require.NoError(t, err)

	// one second past expiry, no leeway
	tm.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	_, err = tm.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerNonNumericSubject(t *testing.T) {
	tm := newTestManager(t)

	claims := &Claims{
		Role: "Admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-number",
			Issuer:    "content-service",
			Audience:  jwt.ClaimStrings{"content-service-clients"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.Validate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", "iss", "aud", time.Minute)
	require.Error(t, err)
}

func flipChar(s string) string {
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
