package productcontroller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/models"
)

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// POST /admin/categories
func CreateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("name is required"))
			return
		}

		category := models.Category{Name: req.Name}
		if err := db.Create(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				httperr.Abort(c, httperr.Conflict("category already exists"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// PUT /admin/categories/:id
func UpdateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid category id"))
			return
		}

		var req CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("name is required"))
			return
		}

		res := db.Model(&models.Category{}).Where("id = ?", id).Update("name", req.Name)
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.NotFound("category"))
			return
		}
		c.Status(http.StatusOK)
	}
}

// GET /categories
func GetAllCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var categories []models.Category
		if err := db.Preload("Products").Find(&categories).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// DELETE /admin/categories/:id
func DeleteCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid category id"))
			return
		}

		var category models.Category
		if err := db.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("category"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&category).Association("Products").Clear(); err != nil {
				return err
			}
			return tx.Delete(&category).Error
		})
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
	}
}
