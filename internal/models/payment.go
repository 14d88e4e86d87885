package models

import (
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
)

type IntentStatus string

const (
	IntentStatusCreated  IntentStatus = "created"
	IntentStatusVerified IntentStatus = "verified"
	IntentStatusFailed   IntentStatus = "failed"
	IntentStatusRejected IntentStatus = "rejected"
)

// PaymentIntent correlates one gateway order with one local order attempt.
type PaymentIntent struct {
	ID               uuid.UUID    `json:"id"`
	OrderID          uuid.UUID    `json:"order_id"`
	UserID           uuid.UUID    `json:"user_id"`
	Provider         string       `json:"provider"`
	GatewayOrderID   string       `json:"gateway_order_id"`
	GatewayPaymentID string       `json:"gateway_payment_id,omitempty"`
	Amount           money.Money  `json:"amount"`
	Attempt          int          `json:"attempt"`
	Status           IntentStatus `json:"status"`
	Receipt          string       `json:"receipt,omitempty"`
	FailureReason    string       `json:"failure_reason,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type CreatePaymentRequest struct {
	OrderID  uuid.UUID `json:"order_id" validate:"required"`
	Amount   int64     `json:"amount" validate:"required,gt=0"`
	Currency string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	Receipt  string    `json:"receipt,omitempty" validate:"max=40"`
}

type CreatePaymentResponse struct {
	OrderID      string `json:"orderId"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Key          string `json:"key"`
	Provider     string `json:"provider"`
	Attempt      int    `json:"attempt"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string    `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string    `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string    `json:"razorpaySignature" validate:"required"`
	OrderID           uuid.UUID `json:"orderId" validate:"required"`
}

type PaymentFailureRequest struct {
	OrderID           uuid.UUID `json:"orderId" validate:"required"`
	RazorpayOrderID   string    `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string    `json:"razorpayPaymentId,omitempty"`
	Reason            string    `json:"reason,omitempty" validate:"max=500"`
}

type OrderResponse struct {
	Order *Order `json:"order"`
}
