package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseRoundTrip(t *testing.T) {
	token, err := Sign("u1", "secret", time.Minute)
	require.NoError(t, err)

	userID, err := ParseUserID(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Sign("u1", "secret", time.Minute)
	require.NoError(t, err)

	_, err = ParseUserID(token, "other-secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := Sign("u1", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseUserID(token, "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	token, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseUserID(token, "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseUserID(token, "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseUserID("not-a-token", "secret")
	require.ErrorIs(t, err, ErrInvalidToken)
}
