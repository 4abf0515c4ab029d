// Package auth implements the credential and token primitives of the API:
// bcrypt password hashing and stateless HS256 access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"expense-api/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the registered claim set; the authenticated username travels in
// the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken mints a signed HS256 token for the given username with an
// absolute expiry validityDuration from now.
func GenerateToken(username string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUsernameFromToken verifies signature, algorithm and expiry, and returns
// the subject. Any failure (bad signature, wrong alg, expired, malformed)
// yields common.ErrorInvalidToken; the token is never trusted partially.
func GetUsernameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", common.ErrorInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrorInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrorInvalidToken
	}

	return claims.Subject, nil
}
