package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const RazorpayName = "razorpay"

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
	// BreakerFailures consecutive transient failures open the breaker for
	// BreakerOpenTimeout.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

type razorpayClient struct {
	cfg     RazorpayConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewRazorpay(cfg RazorpayConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com/v1"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    RazorpayName,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError

			return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError)
		},
	})

	return &razorpayClient{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

func (c *razorpayClient) Name() string {
	return RazorpayName
}

func (c *razorpayClient) PublicKey() string {
	return c.cfg.KeyID
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (c *razorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := map[string]any{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}

	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}

	var out razorpayOrder
	if err := c.call(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}

	return &Order{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Status: out.Status}, nil
}

// VerifyPayment checks the checkout signature locally; no network call.
func (c *razorpayClient) VerifyPayment(_ context.Context, conf Confirmation) error {
	if conf.GatewayOrderID == "" || conf.GatewayPaymentID == "" || conf.Signature == "" {
		return ErrSignatureInvalid
	}

	if !VerifySignature(c.cfg.KeySecret, conf.Signature, conf.GatewayOrderID, conf.GatewayPaymentID) {
		return ErrSignatureInvalid
	}

	return nil
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Receipt   string `json:"receipt"`
}

// Razorpay has no idempotency header for refunds. The key is sent as the
// refund receipt and looked up on the payment before a new refund is created.
func (c *razorpayClient) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	receipt := req.Receipt
	if req.IdempotencyKey != "" {
		receipt = req.IdempotencyKey

		existing, err := c.findRefund(ctx, req.GatewayPaymentID, receipt)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return &Refund{ID: existing.ID, Status: existing.Status}, nil
		}
	}

	body := map[string]any{"amount": req.Amount}
	if receipt != "" {
		body["receipt"] = receipt
	}

	var out razorpayRefund
	if err := c.call(ctx, http.MethodPost, "/payments/"+req.GatewayPaymentID+"/refund", body, &out); err != nil {
		return nil, err
	}

	return &Refund{ID: out.ID, Status: out.Status}, nil
}

func (c *razorpayClient) findRefund(ctx context.Context, paymentID, receipt string) (*razorpayRefund, error) {
	var list struct {
		Items []razorpayRefund `json:"items"`
	}

	if err := c.call(ctx, http.MethodGet, "/payments/"+paymentID+"/refunds", nil, &list); err != nil {
		return nil, err
	}

	for i := range list.Items {
		if list.Items[i].Receipt == receipt {
			return &list.Items[i], nil
		}
	}

	return nil, nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID               string  `json:"id"`
				OrderID          string  `json:"order_id"`
				Amount           int64   `json:"amount"`
				Currency         string  `json:"currency"`
				ErrorDescription *string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (c *razorpayClient) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	if c.cfg.WebhookSecret == "" {
		return nil, errors.New("razorpay webhook secret not configured")
	}

	if !VerifySignature(c.cfg.WebhookSecret, header.Get("X-Razorpay-Signature"), string(payload)) {
		return nil, ErrSignatureInvalid
	}

	var raw razorpayWebhook
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid razorpay webhook payload: %w", err)
	}

	event := &WebhookEvent{ID: header.Get("X-Razorpay-Event-Id"), Type: EventIgnored}

	if p := raw.Payload.Payment; p != nil {
		event.GatewayOrderID = p.Entity.OrderID
		event.GatewayPaymentID = p.Entity.ID
		event.Amount = p.Entity.Amount
		event.Currency = p.Entity.Currency

		if p.Entity.ErrorDescription != nil {
			event.FailureReason = *p.Entity.ErrorDescription
		}
	}

	switch raw.Event {
	case "payment.captured":
		event.Type = EventPaymentCaptured
	case "payment.failed":
		event.Type = EventPaymentFailed
	case "refund.processed":
		if r := raw.Payload.Refund; r != nil {
			event.Type = EventRefundProcessed
			event.RefundID = r.Entity.ID
			event.GatewayPaymentID = r.Entity.PaymentID
			event.Amount = r.Entity.Amount
			event.Currency = r.Entity.Currency
		}
	}

	return event, nil
}

// Healthy reports the circuit breaker state without calling the API.
func (c *razorpayClient) Healthy(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}

	return nil
}

func (c *razorpayClient) call(ctx context.Context, method, path string, in, out any) error {
	var payload []byte

	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode razorpay request: %w", err)
		}

		payload = encoded
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, payload)
	})
	if err != nil {
		return classify(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid razorpay response: %w", err)
	}

	return nil
}

func (c *razorpayClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}

		_ = json.Unmarshal(body, &envelope)

		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        envelope.Error.Code,
			Description: envelope.Error.Description,
		}
	}

	return body, nil
}

// classify maps transport and breaker failures onto ErrTimeout or
// ErrUnavailable. Client errors are returned unchanged.
func classify(err error) error {
	var (
		apiErr *APIError
		netErr net.Error
	)

	switch {
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
