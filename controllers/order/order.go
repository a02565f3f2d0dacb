package orderControllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/metrics"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusPaid):
		return models.OrderStatusPaid, nil
	case string(models.OrderStatusFailed):
		return models.OrderStatusFailed, nil
	default:
		return "", errors.New("invalid order status")
	}
}

// orderLookup matches a numeric path parameter against the primary key and
// anything else against the order reference. The ref string must never be
// bound to the integer id column; Postgres rejects the cast.
func orderLookup(param string) (string, interface{}) {
	if n, err := strconv.ParseUint(param, 10, 64); err == nil {
		return "id = ?", n
	}
	return "order_ref = ?", param
}

// GET /orders
func GetUserOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var orders []models.Order
		if err := db.
			Where("user_id = ?", middleware.UserID(c)).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /orders/:orderID
//
// Ownership is part of the lookup: another user's order is indistinguishable
// from a missing one.
func GetOrderByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id := c.Param("orderID")
		if id == "" {
			httperr.Abort(c, httperr.Validation("orderID is required"))
			return
		}

		cond, val := orderLookup(id)
		var order models.Order
		err := db.
			Preload("Items").
			Where("user_id = ?", middleware.UserID(c)).
			Where(cond, val).
			First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("order"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /admin/orders
func GetAllOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		q := db.Preload("User").Preload("Items").Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			mapped, err := mapOrderStatus(status)
			if err != nil {
				httperr.Abort(c, httperr.Validation(err.Error()))
				return
			}
			q = q.Where("status = ?", mapped)
		}

		var orders []models.Order
		if err := q.Find(&orders).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PUT /admin/orders/:orderID/status
//
// Terminal states are never revisited, including by operators.
func UpdateOrderStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		orderID := c.Param("orderID")
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("status is required"))
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			httperr.Abort(c, httperr.Validation(err.Error()))
			return
		}

		cond, val := orderLookup(orderID)
		var updateErr error
		txErr := db.Transaction(func(tx *gorm.DB) error {
			var order models.Order
			if err := tx.Where(cond, val).First(&order).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					updateErr = httperr.NotFound("order")
					return nil
				}
				return err
			}
			if order.Status.Terminal() {
				updateErr = httperr.Conflict("order is in a terminal state")
				return nil
			}
			return tx.Model(&order).Update("status", newStatus).Error
		})
		if txErr != nil {
			httperr.Abort(c, httperr.Internal(txErr))
			return
		}
		if updateErr != nil {
			httperr.Abort(c, updateErr)
			return
		}

		metrics.OrdersTotal.WithLabelValues(string(newStatus)).Inc()
		c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
	}
}
