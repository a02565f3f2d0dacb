package webhookControllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/models"
	"github.com/northcart/ecommerce-api/payment"
)

const webhookSecret = "whsec_test"

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Category{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/stripe/webhook", StripeWebhookHandler(db, webhookSecret))
	return r
}

func seedUser(t *testing.T, db *gorm.DB, id, email string) *models.User {
	t.Helper()
	u := models.User{
		ID: id, Username: id, Email: email,
		PasswordHash: "x", Roles: []string{models.RoleUser},
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

func completedEvent(sessionID, paymentIntent, email string, amountCents int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"payment_intent": %q,
			"amount_total": %d,
			"currency": "usd",
			"customer_details": {"email": %q}
		}}
	}`, sessionID, paymentIntent, amountCents, email))
}

func deliver(t *testing.T, r *gin.Engine, payload []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	if sign {
		req.Header.Set(payment.SignatureHeader,
			payment.SignWebhookPayload(payload, webhookSecret, time.Now()))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_RejectsUnsignedAndBadSignature(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	payload := completedEvent("cs_1", "pi_1", "buyer@example.com", 5997)

	if rec := deliver(t, r, payload, false); rec.Code != http.StatusBadRequest {
		t.Fatalf("unsigned: %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set(payment.SignatureHeader,
		payment.SignWebhookPayload(payload, "whsec_other", time.Now()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad secret: %d, want 400", rec.Code)
	}

	// Nothing may be persisted on a rejected delivery.
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected webhook persisted %d orders", count)
	}
}

func TestWebhook_SettlesPendingOrderBySessionID(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	user := seedUser(t, db, "user-1", "buyer@example.com")

	product := models.Product{Name: "Widget", Price: decimal.RequireFromString("19.99"), Stock: 10}
	db.Create(&product)

	cart := models.Cart{UserID: user.ID}
	db.Create(&cart)
	db.Create(&models.CartItem{CartID: cart.CartID, ProductID: product.ID, Quantity: 3})

	order := models.Order{
		UserID:            user.ID,
		OrderRef:          "ref-1",
		Amount:            decimal.RequireFromString("59.97"),
		Currency:          "usd",
		Status:            models.OrderStatusPending,
		CheckoutSessionID: "cs_1",
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, UnitPrice: product.Price, Quantity: 3},
		},
	}
	db.Create(&order)

	rec := deliver(t, r, completedEvent("cs_1", "pi_1", "buyer@example.com", 5997), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("delivery: %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Order
	db.First(&got, order.ID)
	if got.Status != models.OrderStatusPaid {
		t.Fatalf("status = %s, want paid", got.Status)
	}
	if got.PaymentRef != "pi_1" {
		t.Fatalf("payment_ref = %q, want pi_1", got.PaymentRef)
	}

	var stock models.Product
	db.First(&stock, product.ID)
	if stock.Stock != 7 {
		t.Fatalf("stock = %d, want 7 after settling 3 units", stock.Stock)
	}

	var items int64
	db.Model(&models.CartItem{}).Where("cart_id = ?", cart.CartID).Count(&items)
	if items != 0 {
		t.Fatalf("cart should be cleared on settlement, has %d items", items)
	}
}

func TestWebhook_RedeliveryIsNoOp(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	seedUser(t, db, "user-1", "buyer@example.com")

	payload := completedEvent("cs_1", "pi_1", "buyer@example.com", 5997)
	if rec := deliver(t, r, payload, true); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: %d", rec.Code)
	}
	if rec := deliver(t, r, payload, true); rec.Code != http.StatusOK {
		t.Fatalf("second delivery: %d", rec.Code)
	}

	var count int64
	db.Model(&models.Order{}).Where("payment_ref = ?", "pi_1").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one order after redelivery, got %d", count)
	}
}

func TestWebhook_UnknownCustomerCreatesNothing(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)

	rec := deliver(t, r, completedEvent("cs_1", "pi_1", "stranger@example.com", 5997), true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown customer: %d, want 404", rec.Code)
	}

	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("unknown-customer event created %d orders", count)
	}
}

func TestWebhook_EmailResolutionIsCaseInsensitive(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	seedUser(t, db, "user-1", "buyer@example.com")

	rec := deliver(t, r, completedEvent("cs_1", "pi_1", "Buyer@Example.COM", 2500), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("mixed-case email delivery: %d", rec.Code)
	}

	var order models.Order
	if err := db.Where("payment_ref = ?", "pi_1").First(&order).Error; err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.UserID != "user-1" {
		t.Fatalf("order owner = %s, want user-1", order.UserID)
	}
	if !order.Amount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("amount = %s, want 25.00 from 2500 minor units", order.Amount)
	}
}

func TestWebhook_ExpiredSessionFailsPendingOrder(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	user := seedUser(t, db, "user-1", "buyer@example.com")

	order := models.Order{
		UserID: user.ID, OrderRef: "ref-1",
		Status: models.OrderStatusPending, CheckoutSessionID: "cs_1",
	}
	db.Create(&order)

	payload := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_1"}}
	}`)
	if rec := deliver(t, r, payload, true); rec.Code != http.StatusOK {
		t.Fatalf("expired delivery: %d", rec.Code)
	}

	var got models.Order
	db.First(&got, order.ID)
	if got.Status != models.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestWebhook_TerminalStateIsNotRevisited(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)
	user := seedUser(t, db, "user-1", "buyer@example.com")

	order := models.Order{
		UserID: user.ID, OrderRef: "ref-1",
		Status: models.OrderStatusPaid, CheckoutSessionID: "cs_1", PaymentRef: "pi_1",
	}
	db.Create(&order)

	// A late expiry event for an already-paid session must not flip it.
	payload := []byte(`{
		"id": "evt_3",
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_1"}}
	}`)
	if rec := deliver(t, r, payload, true); rec.Code != http.StatusOK {
		t.Fatalf("late expiry delivery: %d", rec.Code)
	}

	var got models.Order
	db.First(&got, order.ID)
	if got.Status != models.OrderStatusPaid {
		t.Fatalf("terminal state revisited: %s", got.Status)
	}
}

func TestPaymentRefUniqueIndexBacksDedup(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db, "user-1", "buyer@example.com")

	// Pending orders carry no payment ref yet; the partial index must let any
	// number of them coexist.
	for i, sid := range []string{"cs_1", "cs_2"} {
		order := models.Order{
			UserID: user.ID, OrderRef: fmt.Sprintf("ref-%d", i),
			Status: models.OrderStatusPending, CheckoutSessionID: sid,
		}
		if err := db.Create(&order).Error; err != nil {
			t.Fatalf("pending order %d with empty payment_ref: %v", i, err)
		}
	}

	settled := models.Order{
		UserID: user.ID, OrderRef: "ref-settled",
		Status: models.OrderStatusPaid, CheckoutSessionID: "cs_3", PaymentRef: "pi_1",
	}
	if err := db.Create(&settled).Error; err != nil {
		t.Fatalf("settled order: %v", err)
	}

	dup := models.Order{
		UserID: user.ID, OrderRef: "ref-dup",
		Status: models.OrderStatusPaid, CheckoutSessionID: "cs_4", PaymentRef: "pi_1",
	}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate payment_ref: err = %v, want gorm.ErrDuplicatedKey", err)
	}
}

func TestWebhook_UnhandledEventTypeIsAcknowledged(t *testing.T) {
	db := setupDB(t)
	r := newRouter(db)

	payload := []byte(`{"id": "evt_4", "type": "invoice.created", "data": {"object": {"id": "in_1"}}}`)
	if rec := deliver(t, r, payload, true); rec.Code != http.StatusOK {
		t.Fatalf("unhandled type: %d, want 200", rec.Code)
	}
}
