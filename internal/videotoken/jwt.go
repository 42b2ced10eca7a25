package videotoken

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type JoinClaims struct {
	Room string `json:"room"`
	UID  uint32 `json:"uid"`
	Role int    `json:"role"`
	jwt.RegisteredClaims
}

// JWTSigner signs grants as HS256 tokens keyed by the application secret.
type JWTSigner struct{}

func (JWTSigner) Sign(_ context.Context, g Grant) (string, error) {
	c := JoinClaims{
		Room: g.Room,
		UID:  g.UID,
		Role: g.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.AppID,
			ExpiresAt: jwt.NewNumericDate(g.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(g.AppSecret))
}

// ParseJoin verifies a token produced by JWTSigner.
func ParseJoin(raw, secret string) (*JoinClaims, error) {
	c := &JoinClaims{}
	_, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return c, nil
}
