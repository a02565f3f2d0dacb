package routes

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/auth"
	"github.com/northcart/ecommerce-api/config"
	"github.com/northcart/ecommerce-api/middleware"
)

// SetupAuthRoutes registers all /auth/* endpoints. Reset tokens are handed to
// deliver (the mail relay); a nil sink discards them.
func SetupAuthRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, deliver auth.ResetTokenSink) {
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(rate.Limit(5), 10))
	{
		authGroup.POST("/signup", auth.SignupHandler(db))
		authGroup.POST("/login", auth.LoginHandler(db, cfg.JWTSecret))
		authGroup.POST("/password-reset", auth.PasswordResetRequestHandler(db, cfg.JWTSecret, deliver))
		authGroup.POST("/password-reset/confirm", auth.PasswordResetConfirmHandler(db, cfg.JWTSecret))
	}
}
