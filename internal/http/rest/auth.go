package rest

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// SignAdminToken mints a bearer token accepted by RequireAdmin.
func SignAdminToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("admin secret is empty")
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": RoleAdmin,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}
