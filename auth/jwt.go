package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conduit/domain"
	"conduit/errs"
)

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = 60 * 24 * time.Hour

// Claims is the JWT payload: the user's id and username plus the
// registered expiry claim.
type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs a new HS256 token for the user, expiring after
// TokenLifetime.
func IssueToken(user *domain.User, secret string, now func() time.Time) (string, error) {
	claims := &Claims{
		ID:       user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now().Add(TokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a token string. Any failure, from a
// malformed token to a wrong signature to plain expiry, comes back as a
// single unauthorized error: callers doing optional auth swallow it,
// callers doing required auth surface it.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Errorf(errs.EUNAUTHORIZED, "Unexpected signing method.")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid or expired token.")
	}
	if !token.Valid {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid or expired token.")
	}
	return claims, nil
}
