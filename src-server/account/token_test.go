package account_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/src-server/account"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := account.NewTokens("test-secret")
	raw, err := tokens.Issue("uid-1", "alice@example.com", time.Hour)
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, account.Identity{UID: "uid-1", Email: "alice@example.com"}, id)
}

func TestTokensRejects(t *testing.T) {
	tokens := account.NewTokens("test-secret")

	expired, err := tokens.Issue("uid-1", "alice@example.com", -time.Minute)
	require.NoError(t, err)
	otherSecret, err := account.NewTokens("other").Issue("uid-1", "alice@example.com", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "uid-1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "uid-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":      "not.a.token",
		"expired":      expired,
		"other secret": otherSecret,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(raw)
			require.ErrorIs(t, err, account.ErrInvalidToken)
		})
	}
}
