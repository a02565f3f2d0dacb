package requestControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
)

type ProductRequestInput struct {
	Name    string `json:"name" binding:"required"`
	Details string `json:"details"`
}

type FeedbackInput struct {
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
}

// POST /requests
func CreateProductRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req ProductRequestInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid request payload: "+err.Error()))
			return
		}

		userID := middleware.UserID(c)

		var count int64
		if err := db.Model(&models.ProductRequest{}).
			Where("user_id = ? AND name = ?", userID, req.Name).
			Count(&count).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		if count > 0 {
			httperr.Abort(c, httperr.Conflict("you have already requested this product"))
			return
		}

		pr := models.ProductRequest{UserID: userID, Name: req.Name, Details: req.Details}
		if err := db.Create(&pr).Error; err != nil {
			// Unique index backstop for concurrent duplicates.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				httperr.Abort(c, httperr.Conflict("you have already requested this product"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, pr)
	}
}

// GET /admin/requests
func GetAllProductRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var requests []models.ProductRequest
		if err := db.Order("created_at DESC").Find(&requests).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

// POST /feedback
func CreateFeedback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req FeedbackInput
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid feedback payload: "+err.Error()))
			return
		}

		fb := models.Feedback{
			Email:   models.NormalizeEmail(req.Email),
			Message: req.Message,
			Rating:  req.Rating,
		}
		if err := db.Create(&fb).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "feedback received"})
	}
}
