package checkoutControllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/config"
	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/metrics"
	"github.com/northcart/ecommerce-api/middleware"
	"github.com/northcart/ecommerce-api/models"
	"github.com/northcart/ecommerce-api/payment"
)

type CartLine struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// CheckoutRequest selects one of two modes: a pre-registered processor price
// reference, or ad-hoc line items (explicit, or the caller's cart when
// omitted).
type CheckoutRequest struct {
	PriceID   string     `json:"price_id"`
	Quantity  int        `json:"quantity" binding:"omitempty,min=1"`
	CartItems []CartLine `json:"cart_items" binding:"omitempty,dive"`
	UserEmail string     `json:"user_email" binding:"omitempty,email"`
}

// Cents converts a unit price and quantity to an exact minor-unit amount,
// rounding half-up on the computed cents value. Decimal arithmetic throughout:
// no float drift.
func Cents(unitPrice decimal.Decimal, quantity int) int64 {
	return unitPrice.
		Mul(decimal.NewFromInt(int64(quantity))).
		Shift(2).
		Round(0).
		IntPart()
}

// MajorUnits converts a minor-unit amount back to a decimal amount.
func MajorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// POST /checkout
func CreateCheckoutSession(db *gorm.DB, gw *payment.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		// An empty body means "check out my cart"; any other bind failure
		// is a validation error.
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			httperr.Abort(c, httperr.Validation("invalid checkout payload: "+err.Error()))
			return
		}

		email := models.NormalizeEmail(req.UserEmail)
		if email == "" {
			email = models.NormalizeEmail(middleware.UserEmail(c))
		}

		if req.PriceID != "" {
			createFromPriceRef(c, db, gw, cfg, &req, email)
			return
		}
		createFromLineItems(c, db, gw, cfg, &req, email)
	}
}

func createFromPriceRef(c *gin.Context, db *gorm.DB, gw *payment.Client, cfg *config.Config, req *CheckoutRequest, email string) {
	if !payment.ValidPriceID(req.PriceID) {
		metrics.CheckoutSessionsTotal.WithLabelValues("price_ref", "rejected").Inc()
		httperr.Abort(c, httperr.Validation("invalid price reference"))
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	session, err := gw.CreateCheckoutSession(c.Request.Context(), payment.SessionParams{
		CustomerEmail: email,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		LineItems:     []payment.LineItem{{PriceID: req.PriceID, Quantity: quantity}},
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("price_ref", "upstream_error").Inc()
		httperr.Abort(c, httperr.Upstream("payment gateway unavailable", err))
		return
	}

	// The settled amount lives processor-side for pre-registered prices;
	// reconciliation fills it in from the completed event.
	order := models.Order{
		UserID:            middleware.UserID(c),
		OrderRef:          uuid.NewString(),
		Currency:          cfg.Stripe.Currency,
		Status:            models.OrderStatusPending,
		PaymentMethod:     "card",
		CheckoutSessionID: session.ID,
	}
	if err := db.Create(&order).Error; err != nil {
		httperr.Abort(c, httperr.Internal(err))
		return
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("price_ref", "ok").Inc()
	metrics.OrdersTotal.WithLabelValues(string(models.OrderStatusPending)).Inc()
	c.JSON(http.StatusOK, gin.H{"url": session.URL, "id": session.ID})
}

func createFromLineItems(c *gin.Context, db *gorm.DB, gw *payment.Client, cfg *config.Config, req *CheckoutRequest, email string) {
	userID := middleware.UserID(c)

	lines := req.CartItems
	if len(lines) == 0 {
		var err error
		lines, err = cartLines(db, userID)
		if err != nil {
			httperr.Abort(c, httperr.Internal(err))
			return
		}
	}
	if len(lines) == 0 {
		metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "rejected").Inc()
		httperr.Abort(c, httperr.Validation("cart is empty"))
		return
	}

	// Snapshot catalog prices. Unit prices always come from the catalog,
	// never from the client.
	var (
		items      []payment.LineItem
		orderItems []models.OrderItem
		total      = decimal.Zero
		now        = time.Now()
	)
	for _, line := range lines {
		var product models.Product
		if err := db.First(&product, "id = ?", line.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "rejected").Inc()
				httperr.Abort(c, httperr.Validation("product does not exist"))
				return
			}
			httperr.Abort(c, httperr.Internal(err))
			return
		}

		if !product.Presale && product.Stock < line.Quantity {
			metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "rejected").Inc()
			httperr.Abort(c, httperr.Validation("insufficient stock for product: "+product.Name))
			return
		}
		if product.Presale && product.ReleaseDate != nil && !product.ReleaseDate.After(now) {
			// Release date has passed; the presale flag is stale but the
			// product is purchasable, so fall through to the stock check.
			if product.Stock < line.Quantity {
				metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "rejected").Inc()
				httperr.Abort(c, httperr.Validation("insufficient stock for product: "+product.Name))
				return
			}
		}

		items = append(items, payment.LineItem{
			Name:            product.Name,
			UnitAmountCents: Cents(product.Price, 1),
			Currency:        cfg.Stripe.Currency,
			Quantity:        line.Quantity,
		})
		orderItems = append(orderItems, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	session, err := gw.CreateCheckoutSession(c.Request.Context(), payment.SessionParams{
		CustomerEmail: email,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		LineItems:     items,
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "upstream_error").Inc()
		httperr.Abort(c, httperr.Upstream("payment gateway unavailable", err))
		return
	}

	order := models.Order{
		UserID:            userID,
		Items:             orderItems,
		OrderRef:          uuid.NewString(),
		Amount:            total,
		Currency:          cfg.Stripe.Currency,
		Status:            models.OrderStatusPending,
		PaymentMethod:     "card",
		CheckoutSessionID: session.ID,
	}
	if err := db.Create(&order).Error; err != nil {
		httperr.Abort(c, httperr.Internal(err))
		return
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("adhoc", "ok").Inc()
	metrics.OrdersTotal.WithLabelValues(string(models.OrderStatusPending)).Inc()
	c.JSON(http.StatusOK, gin.H{"url": session.URL, "id": session.ID})
}

func cartLines(db *gorm.DB, userID string) ([]CartLine, error) {
	var cart models.Cart
	err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}
