package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/config"
	cartControllers "github.com/northcart/ecommerce-api/controllers/cart"
	orderControllers "github.com/northcart/ecommerce-api/controllers/order"
	productcontroller "github.com/northcart/ecommerce-api/controllers/product"
	requestControllers "github.com/northcart/ecommerce-api/controllers/request"
	userControllers "github.com/northcart/ecommerce-api/controllers/user"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
)

// SetupAdminRoutes registers all /admin/* endpoints. Requires a session token
// whose role set includes "admin".
func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateToken(cfg.JWTSecret), middleware.RequireRole(models.RoleAdmin))
	{
		adminGroup.GET("/users", userControllers.GetAllUsers(db))

		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(db))
			productAdmin.GET("", productcontroller.GetProducts(db))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(db))
			productAdmin.PUT("/:id/stock", productcontroller.AdjustStock(db))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(db))
		}

		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(db))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(db))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(db))
		}

		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrders(db))
			orderAdmin.PUT("/:orderID/status", orderControllers.UpdateOrderStatus(db))
		}

		adminGroup.GET("/requests", requestControllers.GetAllProductRequests(db))
		adminGroup.GET("/user-cart/:user_id", cartControllers.GetUserCartAdmin(db))
	}
}
