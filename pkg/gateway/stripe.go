package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

const StripeName = "stripe"

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeBalanceAPI interface {
	Get(params *stripe.BalanceParams) (*stripe.Balance, error)
}

type StripeClients struct {
	Intents stripeIntentAPI
	Refunds stripeRefundAPI
	Balance stripeBalanceAPI
}

type StripeConfig struct {
	APIKey         string
	PublishableKey string
	WebhookSecret  string
	Backends       *stripe.Backends
	// Clients replaces the API clients built from APIKey. Used by tests.
	Clients *StripeClients
}

type stripeProvider struct {
	api            StripeClients
	publishableKey string
	webhookSecret  string
}

func NewStripe(cfg StripeConfig) (Provider, error) {
	var clients StripeClients

	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("stripe: api key is required")
		}

		sc := client.New(cfg.APIKey, cfg.Backends)
		clients = StripeClients{Intents: sc.PaymentIntents, Refunds: sc.Refunds, Balance: sc.Balance}
	}

	if clients.Intents == nil || clients.Refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	return &stripeProvider{
		api:            clients,
		publishableKey: cfg.PublishableKey,
		webhookSecret:  cfg.WebhookSecret,
	}, nil
}

func (p *stripeProvider) Name() string {
	return StripeName
}

func (p *stripeProvider) PublicKey() string {
	return p.publishableKey
}

func (p *stripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if req.Receipt != "" {
		params.SetIdempotencyKey(req.Receipt)
		params.AddMetadata("receipt", req.Receipt)
	}

	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	intent, err := p.api.Intents.New(params)
	if err != nil {
		return nil, stripeError(err)
	}

	return &Order{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyPayment asks Stripe for the intent; Stripe confirmations carry no
// client-side signature.
func (p *stripeProvider) VerifyPayment(ctx context.Context, c Confirmation) error {
	if c.GatewayOrderID == "" {
		return ErrSignatureInvalid
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.api.Intents.Get(c.GatewayOrderID, params)
	if err != nil {
		return stripeError(err)
	}

	if intent.ID != c.GatewayOrderID || (c.GatewayPaymentID != "" && c.GatewayPaymentID != intent.ID) {
		return ErrSignatureInvalid
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: intent status %s", ErrPaymentNotCaptured, intent.Status)
	}

	return nil
}

func (p *stripeProvider) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.GatewayPaymentID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx

	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	if req.Receipt != "" {
		params.AddMetadata("receipt", req.Receipt)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, stripeError(err)
	}

	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (p *stripeProvider) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, errors.New("stripe webhook secret not configured")
	}

	ev, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	event := &WebhookEvent{ID: ev.ID, Type: EventIgnored}

	switch ev.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("invalid payment intent payload: %w", err)
		}

		event.GatewayOrderID = intent.ID
		event.GatewayPaymentID = intent.ID
		event.Amount = intent.Amount
		event.Currency = strings.ToUpper(string(intent.Currency))
		event.Type = EventPaymentCaptured

		if ev.Type == "payment_intent.payment_failed" {
			event.Type = EventPaymentFailed
			if intent.LastPaymentError != nil {
				event.FailureReason = intent.LastPaymentError.Msg
			}
		}
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("invalid charge payload: %w", err)
		}

		if charge.PaymentIntent != nil {
			event.Type = EventRefundProcessed
			event.GatewayOrderID = charge.PaymentIntent.ID
			event.GatewayPaymentID = charge.PaymentIntent.ID
			event.Amount = charge.AmountRefunded
			event.Currency = strings.ToUpper(string(charge.Currency))

			if charge.Refunds != nil && len(charge.Refunds.Data) > 0 {
				event.RefundID = charge.Refunds.Data[0].ID
			}
		}
	}

	return event, nil
}

func (p *stripeProvider) Healthy(ctx context.Context) error {
	if p.api.Balance == nil {
		return nil
	}

	params := &stripe.BalanceParams{}
	params.Context = ctx

	if _, err := p.api.Balance.Get(params); err != nil {
		return fmt.Errorf("failed to connect to stripe: %w", err)
	}

	return nil
}

// stripeError keeps card and request errors as APIError and treats the rest
// as the gateway being unavailable.
func stripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < http.StatusInternalServerError {
		return &APIError{StatusCode: stripeErr.HTTPStatusCode, Code: string(stripeErr.Code), Description: stripeErr.Msg}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
