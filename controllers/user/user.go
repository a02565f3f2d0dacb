package userControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
)

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

// GET /user
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var user models.User
		if err := db.First(&user, "id = ?", middleware.UserID(c)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("user"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// PUT /user
//
// Profile fields only. Roles and credentials are never writable here.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid profile payload: "+err.Error()))
			return
		}

		res := db.Model(&models.User{}).
			Where("id = ?", middleware.UserID(c)).
			Updates(map[string]interface{}{
				"full_name": req.FullName,
				"street":    req.Street,
				"city":      req.City,
				"state":     req.State,
				"country":   req.Country,
			})
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.NotFound("user"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
	}
}

// GET /admin/users
func GetAllUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var users []models.User
		if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, users)
	}
}
