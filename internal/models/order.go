package models

import (
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodStripe   PaymentMethod = "stripe"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// UsesGateway is false for methods settled outside any payment gateway.
func (m PaymentMethod) UsesGateway() bool {
	return m != PaymentMethodCOD
}

type OrderItem struct {
	ProductID    uuid.UUID   `json:"product_id"`
	Name         string      `json:"name"`
	UnitPrice    money.Money `json:"unit_price"`
	Quantity     int         `json:"quantity"`
	LineSubtotal money.Money `json:"line_subtotal"`
}

type StatusHistoryEntry struct {
	OrderStatus   OrderStatus   `json:"order_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Timestamp     time.Time     `json:"timestamp"`
	Note          string        `json:"note,omitempty"`
}

type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "requested"
	RefundStatusSubmitted RefundStatus = "submitted"
	RefundStatusCompleted RefundStatus = "completed"
	// RefundStatusFailed is set when the gateway rejects the refund outright.
	// It needs manual handling and is not polled again.
	RefundStatusFailed RefundStatus = "failed"
)

// RefundRequest is the refund outbox entry stored with its order.
type RefundRequest struct {
	Status          RefundStatus `json:"status"`
	Amount          money.Money  `json:"amount"`
	Reason          string       `json:"reason,omitempty"`
	GatewayRefundID string       `json:"gateway_refund_id,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
	RequestedAt     time.Time    `json:"requested_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Order is a snapshot taken at checkout. Items, totals and addresses are
// never modified afterwards; status fields change only through Apply.
type Order struct {
	ID               uuid.UUID            `json:"id"`
	OrderNumber      string               `json:"order_number"`
	UserID           uuid.UUID            `json:"user_id"`
	Currency         string               `json:"currency"`
	Items            []OrderItem          `json:"items"`
	ShippingAddress  Address              `json:"shipping_address"`
	BillingAddress   Address              `json:"billing_address"`
	Subtotal         money.Money          `json:"subtotal"`
	ShippingCharges  money.Money          `json:"shipping_charges"`
	TaxAmount        money.Money          `json:"tax_amount"`
	DiscountAmount   money.Money          `json:"discount_amount"`
	TotalAmount      money.Money          `json:"total_amount"`
	CouponCode       string               `json:"coupon_code,omitempty"`
	PaymentMethod    PaymentMethod        `json:"payment_method"`
	PaymentStatus    PaymentStatus        `json:"payment_status"`
	OrderStatus      OrderStatus          `json:"order_status"`
	StatusHistory    []StatusHistoryEntry `json:"status_history"`
	PaymentAttempts  int                  `json:"payment_attempts"`
	GatewayOrderID   string               `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string               `json:"gateway_payment_id,omitempty"`
	Refund           *RefundRequest       `json:"refund,omitempty"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	Version          int                  `json:"version"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// StatusChange describes a transition. Empty fields leave that status as is.
type StatusChange struct {
	Order   OrderStatus
	Payment PaymentStatus
	Note    string
	At      time.Time
}

// Apply validates both halves of the change against the transition tables
// before mutating anything, then appends one history entry. Moving to the
// current state is a no-op unless the table lists it as an edge. It reports
// whether anything changed.
func (o *Order) Apply(change StatusChange) (bool, error) {
	orderMoves := change.Order != "" && change.Order != o.OrderStatus
	paymentMoves := change.Payment != "" &&
		(change.Payment != o.PaymentStatus || o.PaymentStatus.CanTransitionTo(change.Payment))

	if orderMoves && !o.OrderStatus.CanTransitionTo(change.Order) {
		return false, &TransitionError{Field: "order status", From: string(o.OrderStatus), To: string(change.Order)}
	}

	if paymentMoves && !o.PaymentStatus.CanTransitionTo(change.Payment) {
		return false, &TransitionError{Field: "payment status", From: string(o.PaymentStatus), To: string(change.Payment)}
	}

	if !orderMoves && !paymentMoves {
		return false, nil
	}

	if orderMoves {
		o.OrderStatus = change.Order
	}

	if paymentMoves {
		o.PaymentStatus = change.Payment
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}

	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		Timestamp:     at,
		Note:          change.Note,
	})
	o.UpdatedAt = at

	return true, nil
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

type CheckoutRequest struct {
	AddressID        uuid.UUID  `json:"address_id" validate:"required"`
	BillingAddressID *uuid.UUID `json:"billing_address_id,omitempty"`
	CouponCode       string     `json:"coupon_code,omitempty" validate:"max=32"`
	PaymentMethod    string     `json:"payment_method" validate:"required,oneof=razorpay stripe cod"`
	Notes            string     `json:"notes,omitempty" validate:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled returned"`
	Note   string      `json:"note,omitempty" validate:"max=500"`
}
