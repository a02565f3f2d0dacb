package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/northcart/ecommerce-api/models"
)

const (
	// SessionTokenTTL is the lifetime of a primary login token.
	SessionTokenTTL = 12 * time.Hour
	// ScopedTokenTTL is the lifetime of single-purpose tokens such as
	// password reset and email-change confirmation.
	ScopedTokenTTL = 15 * time.Minute

	PurposePasswordReset = "password_reset"
	PurposeEmailChange   = "email_change"
)

// IssueSessionToken signs a bearer token carrying the user's identity and
// role set, valid for SessionTokenTTL.
func IssueSessionToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"roles":    user.Roles,
		"iat":      now.Unix(),
		"exp":      now.Add(SessionTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// IssueScopedToken signs a short-lived token usable only for the named
// purpose. Scoped tokens are rejected by the session middleware.
func IssueScopedToken(secret, userID, purpose string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(ScopedTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry and returns the claim set.
func ParseToken(secret, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
