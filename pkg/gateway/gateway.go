// Package gateway adapts external payment providers to a single interface:
// create a gateway order, confirm a payment, refund it, and parse signed
// webhook notifications.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrSignatureInvalid   = errors.New("gateway signature invalid")
	ErrPaymentNotCaptured = errors.New("payment not captured")
	ErrUnavailable        = errors.New("payment gateway unavailable")
	ErrTimeout            = errors.New("payment gateway timed out")
)

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	// ClientSecret is set by providers whose client SDK needs it to confirm.
	ClientSecret string
}

// Confirmation is what the client reports after the gateway checkout closes.
type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type RefundRequest struct {
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Receipt          string
	// IdempotencyKey makes a resubmitted refund return the first one instead
	// of refunding twice.
	IdempotencyKey string
}

type Refund struct {
	ID     string
	Status string
}

type EventType string

const (
	EventPaymentCaptured EventType = "payment.captured"
	EventPaymentFailed   EventType = "payment.failed"
	EventRefundProcessed EventType = "refund.processed"
	EventIgnored         EventType = "ignored"
)

type WebhookEvent struct {
	ID               string
	Type             EventType
	GatewayOrderID   string
	GatewayPaymentID string
	RefundID         string
	Amount           int64
	Currency         string
	FailureReason    string
}

type Provider interface {
	Name() string
	// PublicKey is the publishable key handed to checkout clients.
	PublicKey() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyPayment returns ErrSignatureInvalid when the confirmation was not
	// produced by the gateway for this order.
	VerifyPayment(ctx context.Context, c Confirmation) error
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
	Healthy(ctx context.Context) error
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

// Permanent reports whether the provider rejected the request itself, so
// sending it again cannot succeed.
func (e *APIError) Permanent() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError &&
		e.StatusCode != http.StatusTooManyRequests && e.StatusCode != http.StatusConflict
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Sign returns the hex HMAC-SHA256 of parts joined by "|".
func Sign(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "|")))

	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(secret, signature string, parts ...string) bool {
	expected := Sign(secret, parts...)

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
