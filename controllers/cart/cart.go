package cartControllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
)

type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type AdjustItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// getOrCreateCart returns the user's cart, creating an empty one on first
// access. The unique index on user_id makes concurrent creation safe: the
// loser of the race re-reads the winner's row.
func getOrCreateCart(db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{UserID: userID}
	if err := db.Create(&cart).Error; err != nil {
		// Lost a creation race; the existing row wins.
		if ferr := db.Where("user_id = ?", userID).First(&cart).Error; ferr != nil {
			return nil, err
		}
	}
	return &cart, nil
}

// GET /cart
func GetCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		var items []models.CartItem
		if err := db.Preload("Product").Where("cart_id = ?", cart.CartID).Find(&items).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"cart_id": cart.CartID, "items": items})
	}
}

// POST /cart/add
//
// Upserts the (cart, product) line in a single statement so that concurrent
// adds accumulate instead of duplicating rows or losing updates.
func AddItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid cart item: "+err.Error()))
			return
		}

		var product models.Product
		if err := db.First(&product, "id = ?", req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.Validation("product does not exist"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		item := models.CartItem{
			CartID:    cart.CartID,
			ProductID: product.ID,
			Quantity:  req.Quantity,
			AddedAt:   time.Now(),
		}
		err = db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + excluded.quantity"),
				"added_at": time.Now(),
			}),
		}).Create(&item).Error
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.Status(http.StatusOK)
	}
}

// PUT /cart/increment
func IncrementItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req AdjustItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid payload: "+err.Error()))
			return
		}

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		res := db.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.CartID, req.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + 1"))
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.NotFound("cart item"))
			return
		}

		c.Status(http.StatusOK)
	}
}

// PUT /cart/decrement
//
// The decrement and the delete-at-zero run in one transaction so a quantity
// of zero or below is never observable.
func DecrementItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req AdjustItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid payload: "+err.Error()))
			return
		}

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		var affected int64
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.CartItem{}).
				Where("cart_id = ? AND product_id = ?", cart.CartID, req.ProductID).
				UpdateColumn("quantity", gorm.Expr("quantity - 1"))
			if res.Error != nil {
				return res.Error
			}
			affected = res.RowsAffected
			if affected == 0 {
				return nil
			}
			return tx.Where("cart_id = ? AND product_id = ? AND quantity <= 0",
				cart.CartID, req.ProductID).
				Delete(&models.CartItem{}).Error
		})
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		if affected == 0 {
			httperr.Abort(c, httperr.NotFound("cart item"))
			return
		}

		c.Status(http.StatusOK)
	}
}

// DELETE /cart/item/:product_id
//
// Removal is idempotent: deleting an absent item succeeds.
func RemoveItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid product_id"))
			return
		}

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		if err := db.Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
			Delete(&models.CartItem{}).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart item removed"})
	}
}

// DELETE /cart
func ClearCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		cart, err := getOrCreateCart(db, middleware.UserID(c))
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		if err := db.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}

// GET /admin/user-cart/:user_id
func GetUserCartAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		userID := c.Param("user_id")
		if userID == "" {
			httperr.Abort(c, httperr.Validation("user_id is required"))
			return
		}

		var cart models.Cart
		if err := db.Preload("Items.Product").Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("cart"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, cart.Items)
	}
}
