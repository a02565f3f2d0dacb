package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/northcart/ecommerce-api/auth"
	"github.com/northcart/ecommerce-api/httperr"
)

// Context keys set by ValidateToken for downstream handlers.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxEmail    = "email"
	CtxRoles    = "roles"
)

// ValidateToken verifies the bearer token and attaches identity claims to the
// request context. Scoped (single-purpose) tokens are rejected: they never
// grant session access.
func ValidateToken(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			httperr.Abort(c, httperr.Unauthenticated())
			return
		}

		tokenString := header
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenString = parts[1]
		}

		claims, err := auth.ParseToken(jwtSecret, tokenString)
		if err != nil {
			httperr.Abort(c, httperr.InvalidToken())
			return
		}

		if purpose, _ := claims["purpose"].(string); purpose != "" {
			httperr.Abort(c, httperr.InvalidToken())
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			httperr.Abort(c, httperr.InvalidToken())
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxUsername, claims["username"])
		c.Set(CtxEmail, claims["email"])
		c.Set(CtxRoles, rolesFromClaim(claims["roles"]))

		c.Next()
	}
}

// rolesFromClaim normalizes the roles claim to a string slice. JWT decoding
// yields []interface{}; a bare string (legacy token shape) becomes a
// one-element set.
func rolesFromClaim(v interface{}) []string {
	switch roles := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return roles
	case string:
		if roles == "" {
			return nil
		}
		return []string{roles}
	default:
		return nil
	}
}

// UserID returns the authenticated user's id from the context.
func UserID(c *gin.Context) string {
	id, _ := c.Get(CtxUserID)
	s, _ := id.(string)
	return s
}

// UserEmail returns the authenticated user's email from the context.
func UserEmail(c *gin.Context) string {
	v, _ := c.Get(CtxEmail)
	s, _ := v.(string)
	return s
}
