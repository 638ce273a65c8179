package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT(testSecret, "64f0c3a1b2d4e5f601234567", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "64f0c3a1b2d4e5f601234567", userID)
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT(testSecret, "user-1", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT("other-secret", token)
	assert.Error(t, err)
}

func TestParseJWTExpired(t *testing.T) {
	token, err := GenerateJWT(testSecret, "user-1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, token)
	assert.Error(t, err)
}

func TestParseJWTEmpty(t *testing.T) {
	_, err := ParseJWT(testSecret, "")
	assert.Error(t, err)
}

func TestParseJWTGarbage(t *testing.T) {
	_, err := ParseJWT(testSecret, "not.a.token")
	assert.Error(t, err)
}

func TestParseJWTRejectsUnsignedToken(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "user-1",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, token)
	assert.Error(t, err)
}

func TestParseJWTMissingUserID(t *testing.T) {
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token, err := bare.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, token)
	assert.Error(t, err)
}
