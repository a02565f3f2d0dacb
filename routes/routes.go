package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/auth"
	"github.com/northcart/ecommerce-api/config"
	"github.com/northcart/ecommerce-api/payment"
)

// SetupRoutes is the single entry-point that wires up all route groups.
// resetSink receives issued password-reset tokens for out-of-band delivery.
func SetupRoutes(r *gin.Engine, db *gorm.DB, gw *payment.Client, cfg *config.Config, resetSink auth.ResetTokenSink) {
	// Public auth routes (rate-limited, no session required)
	SetupAuthRoutes(r, db, cfg, resetSink)

	// Session-protected user surface
	SetupUserRoutes(r, db, gw, cfg)

	// Admin surface (session + admin role)
	SetupAdminRoutes(r, db, cfg)

	// Public catalog and payment webhook
	SetupPublicRoutes(r, db, cfg)

	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
