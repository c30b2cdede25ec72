package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"car-service/pkg/model"
)

var ErrInvalid = errors.New("invalid token")

type Claims struct {
	UserID     uint   `json:"uid"`
	Username   string `json:"username"`
	CustomerID string `json:"cid,omitempty"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin applies model.User.IsAdmin to the role claim.
func (c *Claims) IsAdmin() bool {
	return c != nil && model.User{Role: c.Role}.IsAdmin()
}

func secret() []byte {
	s := os.Getenv("JWT_SECRET")
	if s == "" {
		s = "change-me-secret"
	}
	return []byte(s)
}

func Generate(u model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     u.ID,
		Username:   u.Username,
		CustomerID: u.CustomerID,
		Role:       u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims, ok := token.Claims.(*Claims); ok {
		return claims, nil
	}
	return nil, ErrInvalid
}
