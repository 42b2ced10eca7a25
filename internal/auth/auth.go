// Package auth holds the credential primitives shared by the browser
// sessions and the gRPC API: password hashes, signed access tokens and
// opaque session tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"clinic-booking/internal/model"
)

const (
	AccessTTL  = 15 * time.Minute
	SessionTTL = 7 * 24 * time.Hour

	issuer = "clinic-booking"
)

var (
	ErrBadToken        = errors.New("invalid token")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

func HashPassword(pw string) (string, error) {
	// bcrypt ignores everything past 72 bytes
	if len(pw) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// AccessClaims identify an account and its role for AccessTTL.
type AccessClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) AccountID() string { return c.Subject }

func IssueAccess(accountID string, role model.Role, secret string) (string, error) {
	now := time.Now()
	c := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseAccess accepts only HS256 tokens from this service that carry an
// expiry, a subject and a known role.
func ParseAccess(raw, secret string) (*AccessClaims, error) {
	c := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrBadToken, err)
	}
	if c.Subject == "" || !c.Role.Valid() {
		return nil, ErrBadToken
	}
	return c, nil
}

// NewSessionToken returns a random opaque token and the hash under which it
// is stored; the raw value only ever lives in the client's cookie.
func NewSessionToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashSessionToken(raw), nil
}

func HashSessionToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
