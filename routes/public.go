package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/config"
	productcontroller "github.com/northcart/ecommerce-api/controllers/product"
	requestControllers "github.com/northcart/ecommerce-api/controllers/request"
	webhookControllers "github.com/northcart/ecommerce-api/controllers/webhook"
)

// SetupPublicRoutes registers the unauthenticated catalog surface and the
// payment gateway webhook.
func SetupPublicRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	r.GET("/products", productcontroller.GetProducts(db))
	r.GET("/products/:id", productcontroller.GetProductByID(db))
	r.GET("/categories", productcontroller.GetAllCategories(db))

	r.POST("/feedback", requestControllers.CreateFeedback(db))

	// Raw-body endpoint; signature verification happens inside the handler.
	r.POST("/stripe/webhook", webhookControllers.StripeWebhookHandler(db, cfg.Stripe.WebhookSecret))
}
