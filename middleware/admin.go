package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/northcart/ecommerce-api/httperr"
)

// RequireRole enforces membership of the given role in the request's role
// set. Must run after ValidateToken. The failure response is opaque.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(CtxRoles)
		roles, _ := v.([]string)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		httperr.Abort(c, httperr.Forbidden())
	}
}
