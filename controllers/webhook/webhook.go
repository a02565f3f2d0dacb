// Package webhookControllers reconciles asynchronous payment confirmation
// events against the order store. The gateway delivers at-least-once, so
// every path here must be idempotent; a 200 is only ever returned after the
// corresponding state is durably persisted.
package webhookControllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	checkoutControllers "github.com/northcart/ecommerce-api/controllers/checkout"
	"github.com/northcart/ecommerce-api/httperr"
	"github.com/northcart/ecommerce-api/logger"
	"github.com/northcart/ecommerce-api/metrics"
	"github.com/northcart/ecommerce-api/models"
	"github.com/northcart/ecommerce-api/payment"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
	eventPaymentFailed     = "checkout.session.async_payment_failed"
)

type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object sessionObject `json:"object"`
	} `json:"data"`
}

type sessionObject struct {
	ID              string `json:"id"`
	PaymentIntent   string `json:"payment_intent"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

func (s *sessionObject) email() string {
	if s.CustomerDetails.Email != "" {
		return models.NormalizeEmail(s.CustomerDetails.Email)
	}
	return models.NormalizeEmail(s.CustomerEmail)
}

var errUnknownCustomer = errors.New("no user matches the event contact email")

// POST /stripe/webhook
//
// Signature verification runs on the raw body before any field is trusted.
func StripeWebhookHandler(db *gorm.DB, webhookSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := db.WithContext(c.Request.Context())

		body, err := c.GetRawData()
		if err != nil {
			httperr.Abort(c, httperr.Validation("unreadable body"))
			return
		}

		sig := c.GetHeader(payment.SignatureHeader)
		if err := payment.VerifyWebhookSignature(body, sig, webhookSecret, time.Now()); err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
			httperr.Abort(c, httperr.Validation("invalid webhook signature"))
			return
		}

		var evt event
		if err := json.Unmarshal(body, &evt); err != nil {
			httperr.Abort(c, httperr.Validation("malformed event payload"))
			return
		}

		log := logger.Get().With().
			Str("event_id", evt.ID).
			Str("event_type", evt.Type).
			Str("session_id", evt.Data.Object.ID).
			Logger()

		switch evt.Type {
		case eventCheckoutCompleted:
			handleCompleted(c, db, &evt.Data.Object, log)
		case eventCheckoutExpired, eventPaymentFailed:
			handleFailed(c, db, &evt.Data.Object, evt.Type, log)
		default:
			// Unhandled event types are acknowledged so the gateway stops
			// redelivering them.
			metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "processed").Inc()
			c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
		}
	}
}

func handleCompleted(c *gin.Context, db *gorm.DB, session *sessionObject, log zerolog.Logger) {
	duplicate := false

	err := db.Transaction(func(tx *gorm.DB) error {
		// Redelivery check on the payment reference: a terminal order
		// carrying this reference means the event was already applied.
		if session.PaymentIntent != "" {
			var count int64
			if err := tx.Model(&models.Order{}).
				Where("payment_ref = ?", session.PaymentIntent).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				duplicate = true
				return nil
			}
		}

		var order models.Order
		err := tx.Where("checkout_session_id = ?", session.ID).First(&order).Error
		switch {
		case err == nil:
			if order.Status.Terminal() {
				duplicate = true
				return nil
			}
			return settleOrder(tx, &order, session)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No pending order for this session: the legacy path. Identity
			// is re-derived from the event's contact email.
			return createSettledOrder(tx, session)
		default:
			return err
		}
	})

	switch {
	case err == nil && duplicate:
		metrics.WebhookEventsTotal.WithLabelValues(eventCheckoutCompleted, "duplicate").Inc()
		log.Info().Str("payment_ref", session.PaymentIntent).Msg("duplicate delivery ignored")
		c.JSON(http.StatusOK, gin.H{"message": "already processed"})
	case err == nil:
		metrics.WebhookEventsTotal.WithLabelValues(eventCheckoutCompleted, "processed").Inc()
		metrics.OrdersTotal.WithLabelValues(string(models.OrderStatusPaid)).Inc()
		log.Info().Str("payment_ref", session.PaymentIntent).Msg("order settled")
		c.JSON(http.StatusOK, gin.H{"message": "order settled"})
	case errors.Is(err, errUnknownCustomer):
		metrics.WebhookEventsTotal.WithLabelValues(eventCheckoutCompleted, "unknown_customer").Inc()
		httperr.Abort(c, httperr.NotFound("customer"))
	default:
		// No ack: the gateway redelivers and the dedup check makes the
		// retry safe.
		metrics.WebhookEventsTotal.WithLabelValues(eventCheckoutCompleted, "error").Inc()
		httperr.Abort(c, httperr.Internal(err))
	}
}

// settleOrder moves a pending order to paid, records the payment reference,
// deducts stock and clears the owner's cart.
func settleOrder(tx *gorm.DB, order *models.Order, session *sessionObject) error {
	updates := map[string]interface{}{
		"status":      models.OrderStatusPaid,
		"payment_ref": session.PaymentIntent,
	}
	// Pre-registered price flows carry no local amount until settlement.
	if order.Amount.IsZero() && session.AmountTotal > 0 {
		updates["amount"] = checkoutControllers.MajorUnits(session.AmountTotal)
	}
	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return err
	}

	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Payment already settled; an oversell is logged, never failed.
			log := logger.Get()
			log.Warn().
				Uint("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock underflow on settled order")
		}
	}

	return clearCart(tx, order.UserID)
}

// createSettledOrder handles a completed event with no local pending order,
// resolving the user by the event's contact email.
func createSettledOrder(tx *gorm.DB, session *sessionObject) error {
	email := session.email()
	if email == "" {
		return errUnknownCustomer
	}

	var user models.User
	if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errUnknownCustomer
		}
		return err
	}

	order := models.Order{
		UserID:            user.ID,
		OrderRef:          uuid.NewString(),
		Amount:            checkoutControllers.MajorUnits(session.AmountTotal),
		Currency:          session.Currency,
		Status:            models.OrderStatusPaid,
		PaymentMethod:     "card",
		CheckoutSessionID: session.ID,
		PaymentRef:        session.PaymentIntent,
	}
	if err := tx.Create(&order).Error; err != nil {
		return err
	}

	return clearCart(tx, user.ID)
}

func handleFailed(c *gin.Context, db *gorm.DB, session *sessionObject, eventType string, log zerolog.Logger) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Where("checkout_session_id = ?", session.ID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // nothing to fail; ack so the gateway stops retrying
		}
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return nil
		}
		return tx.Model(&order).Updates(map[string]interface{}{
			"status":      models.OrderStatusFailed,
			"payment_ref": session.PaymentIntent,
		}).Error
	})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "error").Inc()
		httperr.Abort(c, httperr.Internal(err))
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(eventType, "processed").Inc()
	metrics.OrdersTotal.WithLabelValues(string(models.OrderStatusFailed)).Inc()
	log.Info().Msg("payment marked failed")
	c.JSON(http.StatusOK, gin.H{"message": "payment failure recorded"})
}

func clearCart(tx *gorm.DB, userID string) error {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error
}
