package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/config"
	cartControllers "github.com/northcart/ecommerce-api/controllers/cart"
	checkoutControllers "github.com/northcart/ecommerce-api/controllers/checkout"
	orderControllers "github.com/northcart/ecommerce-api/controllers/order"
	requestControllers "github.com/northcart/ecommerce-api/controllers/request"
	userControllers "github.com/northcart/ecommerce-api/controllers/user"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/payment"
)

// SetupUserRoutes registers every session-protected endpoint.
func SetupUserRoutes(r *gin.Engine, db *gorm.DB, gw *payment.Client, cfg *config.Config) {
	authed := r.Group("/")
	authed.Use(middleware.ValidateToken(cfg.JWTSecret))
	{
		// Profile
		authed.GET("/user", userControllers.GetProfile(db))
		authed.PUT("/user", userControllers.UpdateProfile(db))

		// Shopping cart
		cart := authed.Group("/cart")
		{
			cart.GET("", cartControllers.GetCart(db))
			cart.POST("/add", cartControllers.AddItem(db))
			cart.PUT("/increment", cartControllers.IncrementItem(db))
			cart.PUT("/decrement", cartControllers.DecrementItem(db))
			cart.DELETE("/item/:product_id", cartControllers.RemoveItem(db))
			cart.DELETE("", cartControllers.ClearCart(db))
		}

		// Checkout
		authed.POST("/checkout", checkoutControllers.CreateCheckoutSession(db, gw, cfg))

		// Orders
		authed.GET("/orders", orderControllers.GetUserOrders(db))
		authed.GET("/orders/:orderID", orderControllers.GetOrderByID(db))

		// Product requests
		authed.POST("/requests", requestControllers.CreateProductRequest(db))
	}
}
