package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending" // awaiting payment confirmation
	OrderStatusPaid    OrderStatus = "paid"    // terminal
	OrderStatusFailed  OrderStatus = "failed"  // terminal
)

// Terminal reports whether s is a final state. Terminal states are never
// revisited by reconciliation.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

type Order struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	UserID   string      `gorm:"not null;index" json:"user_id"`
	User     User        `gorm:"foreignKey:UserID" json:"-"`
	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	OrderRef string      `gorm:"uniqueIndex" json:"order_ref"`

	Amount        decimal.Decimal `gorm:"type:numeric(10,2)" json:"amount"`
	Currency      string          `gorm:"type:VARCHAR(3)" json:"currency"`
	Status        OrderStatus     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentMethod string          `json:"payment_method"`

	// CheckoutSessionID keys the pending order to the gateway session so the
	// webhook can find it without re-deriving identity from email alone.
	CheckoutSessionID string `gorm:"uniqueIndex" json:"checkout_session_id"`
	// PaymentRef is the processor's payment-intent reference, set when the
	// order reaches a terminal state. Reconciliation dedupes on it; the
	// partial unique index leaves pending rows (empty ref) unconstrained.
	PaymentRef string `gorm:"uniqueIndex:idx_orders_payment_ref,where:payment_ref <> ''" json:"payment_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem snapshots the unit price at order time so historical orders are
// unaffected by later catalog price changes.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index" json:"order_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2)" json:"unit_price"`
	Quantity    int             `json:"quantity"`
}
