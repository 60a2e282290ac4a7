// Package auth implements the local credential primitives: signed session
// tokens and one-way password hashing. Session tokens are stateless; their
// validity is determined entirely by signature and expiry, there is no
// server-side revocation list.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jkalnina/authgate/internal/common"
)

// Claims carries the token subject (the identity provider's external id)
// plus the local user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// GenerateToken signs a session token for the given identity. The subject
// is the provider external id, UserID is the local record id.
func GenerateToken(externalID, userID string, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies signature and expiry and returns the external id and
// local user id. Expired tokens yield common.ErrTokenExpired, anything else
// that fails verification yields common.ErrInvalidToken. No clock-skew
// leeway is applied.
func ParseToken(tokenString string, secretKey []byte) (externalID string, userID string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.UserID, nil
}
