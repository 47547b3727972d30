package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are issued by the company identity service; this backend only
// verifies them and extracts the actor for audit trails.
var jwtSecretKey = []byte(Getenv("JWT_SECRET", "dev-only-supply-map-secret"))

// Claims defines the JWT claims structure shared with the identity service.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ValidateToken parses and validates a JWT string, returning the claims if valid.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
