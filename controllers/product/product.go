package productcontroller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/models"
)

type ProductRequest struct {
	Name            string     `json:"name" binding:"required"`
	Description     string     `json:"description"`
	Price           string     `json:"price" binding:"required"`
	Stock           int        `json:"stock" binding:"min=0"`
	StripeProductID string     `json:"stripe_product_id"`
	StripePriceID   string     `json:"stripe_price_id" binding:"omitempty,priceref"`
	Presale         bool       `json:"presale"`
	ReleaseDate     *time.Time `json:"release_date"`
	CategoryIDs     []uint     `json:"category_ids"`
}

// parse validates the request and converts it to a model. Price must be a
// positive decimal; a presale product must carry a future release date.
func (r *ProductRequest) parse(now time.Time) (*models.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil || !price.IsPositive() {
		return nil, httperr.Validation("price must be a positive decimal")
	}
	if r.Presale && (r.ReleaseDate == nil || !r.ReleaseDate.After(now)) {
		return nil, httperr.Validation("presale products require a future release date")
	}

	return &models.Product{
		Name:            r.Name,
		Description:     r.Description,
		Price:           price,
		Stock:           r.Stock,
		StripeProductID: r.StripeProductID,
		StripePriceID:   r.StripePriceID,
		Presale:         r.Presale,
		ReleaseDate:     r.ReleaseDate,
	}, nil
}

func loadCategories(db *gorm.DB, ids []uint) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []models.Category
	if err := db.Find(&categories, ids).Error; err != nil {
		return nil, err
	}
	if len(categories) != len(ids) {
		return nil, httperr.Validation("one or more category ids do not exist")
	}
	return categories, nil
}

// POST /admin/products
func CreateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid product: "+err.Error()))
			return
		}

		product, err := req.parse(time.Now())
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		categories, err := loadCategories(db, req.CategoryIDs)
		if err != nil {
			httperr.Abort(c, err)
			return
		}
		product.Categories = categories

		if err := db.Create(product).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// PUT /admin/products/:id
func UpdateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid product id"))
			return
		}

		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("invalid product: "+err.Error()))
			return
		}

		updated, err := req.parse(time.Now())
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		var product models.Product
		if err := db.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("product"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		categories, err := loadCategories(db, req.CategoryIDs)
		if err != nil {
			httperr.Abort(c, err)
			return
		}

		updated.ID = product.ID
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&product).Select(
				"name", "description", "price", "stock",
				"stripe_product_id", "stripe_price_id", "presale", "release_date",
			).Updates(updated).Error; err != nil {
				return err
			}
			return tx.Model(&product).Association("Categories").Replace(categories)
		})
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

// PUT /admin/products/:id/stock
//
// Stock adjustments are a single atomic UPDATE so concurrent restocks and
// checkouts never lose updates.
func AdjustStock(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid product id"))
			return
		}

		var req struct {
			Delta int `json:"delta" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.Abort(c, httperr.Validation("delta is required"))
			return
		}

		res := db.Model(&models.Product{}).
			Where("id = ? AND stock + ? >= 0", id, req.Delta).
			UpdateColumn("stock", gorm.Expr("stock + ?", req.Delta))
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.Validation("adjustment would make stock negative or product missing"))
			return
		}
		c.Status(http.StatusOK)
	}
}

// DELETE /admin/products/:id
func DeleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid product id"))
			return
		}

		res := db.Delete(&models.Product{}, id)
		if res.Error != nil {
			httperr.Abort(c, httperr.Internal(res.Error))
			return
		}
		if res.RowsAffected == 0 {
			httperr.Abort(c, httperr.NotFound("product"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

// GET /products
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		var products []models.Product
		q := db.Preload("Categories")
		if category := c.Query("category"); category != "" {
			q = q.Joins("JOIN product_categories pc ON pc.product_id = products.id").
				Joins("JOIN categories ON categories.id = pc.category_id").
				Where("categories.name = ?", category)
		}
		if err := q.Order("created_at DESC").Find(&products).Error; err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /products/:id
func GetProductByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			httperr.Abort(c, httperr.Validation("invalid product id"))
			return
		}

		var product models.Product
		if err := db.Preload("Categories").First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httperr.Abort(c, httperr.NotFound("product"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
