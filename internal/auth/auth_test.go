package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking/internal/model"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", hash)
	assert.True(t, CheckPassword(hash, "pass1234"))
	assert.False(t, CheckPassword(hash, "wrong"))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestSessionTokens(t *testing.T) {
	raw, hash, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashSessionToken(raw))

	other, _, err := NewSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestAccessToken(t *testing.T) {
	tok, err := IssueAccess("acc-1", model.RoleProvider, "secret")
	require.NoError(t, err)

	c, err := ParseAccess(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", c.AccountID())
	assert.Equal(t, model.RoleProvider, c.Role)
	assert.WithinDuration(t, time.Now().Add(AccessTTL), c.ExpiresAt.Time, time.Minute)
}

func TestParseAccessRejects(t *testing.T) {
	tok, err := IssueAccess("acc-1", model.RolePatient, "secret")
	require.NoError(t, err)

	_, err = ParseAccess(tok, "wrong-secret")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = ParseAccess("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrBadToken)

	sign := func(m jwt.SigningMethod, key any, c AccessClaims) string {
		s, err := jwt.NewWithClaims(m, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	// HS512 with the right key is still refused
	hs512 := sign(jwt.SigningMethodHS512, []byte("secret"), AccessClaims{Role: model.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "acc-1", ExpiresAt: exp}})
	_, err = ParseAccess(hs512, "secret")
	assert.ErrorIs(t, err, ErrBadToken)

	noExp := sign(jwt.SigningMethodHS256, []byte("secret"), AccessClaims{Role: model.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "acc-1"}})
	_, err = ParseAccess(noExp, "secret")
	assert.ErrorIs(t, err, ErrBadToken)

	badRole := sign(jwt.SigningMethodHS256, []byte("secret"), AccessClaims{Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "acc-1", ExpiresAt: exp}})
	_, err = ParseAccess(badRole, "secret")
	assert.ErrorIs(t, err, ErrBadToken)

	foreign := sign(jwt.SigningMethodHS256, []byte("secret"), AccessClaims{Role: model.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "acc-1", ExpiresAt: exp}})
	_, err = ParseAccess(foreign, "secret")
	assert.ErrorIs(t, err, ErrBadToken)
}
