package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/pkg/gateway"
	"github.com/google/uuid"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, userID uuid.UUID, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, error)
	Verify(ctx context.Context, userID uuid.UUID, req *models.VerifyPaymentRequest) (*models.Order, error)
	ReportFailure(ctx context.Context, userID uuid.UUID, req *models.PaymentFailureRequest) (*models.Order, error)
	HandleWebhook(ctx context.Context, provider string, payload []byte, header http.Header) error
}

type paymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	providers   map[string]gateway.Provider
	maxAttempts int
	now         func() time.Time
}

// NewPaymentService routes each order to the provider registered under its
// payment method name.
func NewPaymentService(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, providers map[string]gateway.Provider, maxAttempts int) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		providers:   providers,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, userID uuid.UUID, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, error) {
	logger := middleware.LoggerFromContext(ctx)

	order, err := s.orderRepo.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to load order").WithError(err)
	}

	if order.UserID != userID {
		return nil, errors.NotFoundError("Order not found")
	}

	if !order.PaymentMethod.UsesGateway() {
		return nil, errors.BadRequestError("This order is not paid online")
	}

	provider, ok := s.providers[string(order.PaymentMethod)]
	if !ok {
		return nil, errors.GatewayUnavailableError("Payment method is not available")
	}

	currency := order.Currency
	if req.Currency != "" {
		if currency, err = money.NormalizeCurrency(req.Currency); err != nil {
			return nil, errors.AddValidationError("currency", "must be an ISO 4217 code")
		}
	}

	if req.Amount != order.TotalAmount.Amount || currency != order.Currency {
		return nil, errors.AmountMismatchError(fmt.Sprintf("Amount must be %s", order.TotalAmount))
	}

	if err := s.checkPayable(order); err != nil {
		return nil, err
	}

	attempt := order.PaymentAttempts + 1
	notes := map[string]string{"order_id": order.ID.String(), "order_number": order.OrderNumber}

	if req.Receipt != "" {
		notes["client_receipt"] = req.Receipt
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		notes["request_id"] = id
	}

	gwOrder, err := provider.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   order.TotalAmount.Amount,
		Currency: order.Currency,
		Receipt:  fmt.Sprintf("%s-%d", order.OrderNumber, attempt),
		Notes:    notes,
	})
	if err != nil {
		logger.Error("Gateway order creation failed",
			slog.String("orderId", order.ID.String()), slog.String("provider", provider.Name()), slog.String("error", err.Error()))

		return nil, gatewayError(err)
	}

	if gwOrder.Amount != order.TotalAmount.Amount {
		logger.Error("Gateway order amount differs from order total",
			slog.String("orderId", order.ID.String()), slog.Int64("gatewayAmount", gwOrder.Amount))

		return nil, errors.AmountMismatchError("Gateway amount does not match the order total")
	}

	updated, err := s.orderRepo.UpdateOrder(ctx, order.ID, func(o *models.Order) error {
		if err := s.checkPayable(o); err != nil {
			return err
		}

		o.PaymentAttempts++
		o.GatewayOrderID = gwOrder.ID

		return nil
	})
	if err != nil {
		return nil, orderUpdateError(err)
	}

	intent := &models.PaymentIntent{
		ID:             uuid.New(),
		OrderID:        order.ID,
		UserID:         userID,
		Provider:       provider.Name(),
		GatewayOrderID: gwOrder.ID,
		Amount:         order.TotalAmount,
		Attempt:        updated.PaymentAttempts,
		Status:         models.IntentStatusCreated,
		Receipt:        fmt.Sprintf("%s-%d", order.OrderNumber, attempt),
	}

	if err := s.paymentRepo.CreateIntent(ctx, intent); err != nil {
		return nil, errors.DatabaseError("Failed to record payment").WithError(err)
	}

	metrics.PaymentEvent(provider.Name(), string(models.IntentStatusCreated))

	return &models.CreatePaymentResponse{
		OrderID:      gwOrder.ID,
		Amount:       gwOrder.Amount,
		Currency:     order.Currency,
		Key:          provider.PublicKey(),
		Provider:     provider.Name(),
		Attempt:      updated.PaymentAttempts,
		ClientSecret: gwOrder.ClientSecret,
	}, nil
}

func (s *paymentService) checkPayable(o *models.Order) error {
	if o.OrderStatus != models.OrderStatusPending {
		return errors.InvalidTransitionError("Order is not awaiting payment")
	}

	if o.PaymentStatus != models.PaymentStatusPending && o.PaymentStatus != models.PaymentStatusFailed {
		return errors.InvalidTransitionError("Order is already paid")
	}

	if o.PaymentAttempts >= s.maxAttempts {
		return errors.TooManyAttemptsError(fmt.Sprintf("Payment can be attempted at most %d times", s.maxAttempts))
	}

	return nil
}

// Verify confirms a client-reported payment with the gateway. A forged
// confirmation never changes the order.
func (s *paymentService) Verify(ctx context.Context, userID uuid.UUID, req *models.VerifyPaymentRequest) (*models.Order, error) {
	logger := middleware.LoggerFromContext(ctx)

	intent, provider, err := s.ownedIntent(ctx, userID, req.OrderID, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}

	err = provider.VerifyPayment(ctx, gateway.Confirmation{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})

	switch {
	case err == nil:
	case stdErrors.Is(err, gateway.ErrSignatureInvalid):
		logger.Warn("Payment signature rejected",
			slog.String("orderId", intent.OrderID.String()),
			slog.String("gatewayOrderId", req.RazorpayOrderID),
			slog.String("gatewayPaymentId", req.RazorpayPaymentID))
		metrics.SignatureRejected("verify")

		if err := s.paymentRepo.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusRejected, req.RazorpayPaymentID, "signature mismatch"); err != nil {
			logger.Error("Failed to mark payment intent rejected", slog.String("error", err.Error()))
		}

		return nil, errors.SignatureInvalidError()
	case stdErrors.Is(err, gateway.ErrPaymentNotCaptured):
		return nil, errors.PaymentDeclinedError("Payment has not been captured")
	default:
		return nil, gatewayError(err)
	}

	order, err := s.completePayment(ctx, intent.OrderID, req.RazorpayPaymentID, "Payment verified")
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusVerified, req.RazorpayPaymentID, ""); err != nil {
		logger.Error("Failed to mark payment intent verified", slog.String("error", err.Error()))
	}

	metrics.PaymentEvent(provider.Name(), string(models.IntentStatusVerified))

	return order, nil
}

func (s *paymentService) ReportFailure(ctx context.Context, userID uuid.UUID, req *models.PaymentFailureRequest) (*models.Order, error) {
	logger := middleware.LoggerFromContext(ctx)

	intent, provider, err := s.ownedIntent(ctx, userID, req.OrderID, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}

	reason := utils.SanitizeText(req.Reason)
	if reason == "" {
		reason = "Payment failed"
	}

	order, err := s.failPayment(ctx, intent.OrderID, reason)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusFailed, req.RazorpayPaymentID, reason); err != nil {
		logger.Error("Failed to mark payment intent failed", slog.String("error", err.Error()))
	}

	metrics.PaymentEvent(provider.Name(), string(models.IntentStatusFailed))

	return order, nil
}

func (s *paymentService) ownedIntent(ctx context.Context, userID, orderID uuid.UUID, gatewayOrderID string) (*models.PaymentIntent, gateway.Provider, error) {
	intent, err := s.paymentRepo.GetIntentByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, nil, errors.NotFoundError("Payment not found")
		}

		return nil, nil, errors.DatabaseError("Failed to load payment").WithError(err)
	}

	if intent.UserID != userID || intent.OrderID != orderID {
		return nil, nil, errors.NotFoundError("Payment not found")
	}

	provider, ok := s.providers[intent.Provider]
	if !ok {
		return nil, nil, errors.GatewayUnavailableError("Payment method is not available")
	}

	return intent, provider, nil
}

// HandleWebhook applies a signed gateway notification. Events that refer to
// unknown payments are acknowledged without effect.
func (s *paymentService) HandleWebhook(ctx context.Context, providerName string, payload []byte, header http.Header) error {
	logger := middleware.LoggerFromContext(ctx)

	provider, ok := s.providers[providerName]
	if !ok {
		return errors.NotFoundError("Unknown payment provider")
	}

	event, err := provider.ParseWebhook(payload, header)
	if err != nil {
		if stdErrors.Is(err, gateway.ErrSignatureInvalid) {
			logger.Warn("Webhook signature rejected", slog.String("provider", providerName))
			metrics.SignatureRejected("webhook")

			return errors.SignatureInvalidError()
		}

		return errors.BadRequestError("Invalid webhook payload").WithError(err)
	}

	logger = logger.With(slog.String("provider", providerName), slog.String("eventId", event.ID), slog.String("event", string(event.Type)))

	switch event.Type {
	case gateway.EventPaymentCaptured:
		intent, err := s.webhookIntent(ctx, logger, event.GatewayOrderID)
		if intent == nil {
			return err
		}

		if event.Amount != intent.Amount.Amount || !strings.EqualFold(event.Currency, intent.Amount.Currency) {
			logger.Error("Captured amount differs from payment intent",
				slog.Int64("captured", event.Amount), slog.Int64("expected", intent.Amount.Amount))
			metrics.PaymentEvent(providerName, "amount_mismatch")

			return nil
		}

		if _, err := s.completePayment(ctx, intent.OrderID, event.GatewayPaymentID, "Payment captured"); err != nil {
			return err
		}

		if err := s.paymentRepo.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusVerified, event.GatewayPaymentID, ""); err != nil {
			logger.Error("Failed to mark payment intent verified", slog.String("error", err.Error()))
		}

		metrics.PaymentEvent(providerName, string(models.IntentStatusVerified))

	case gateway.EventPaymentFailed:
		intent, err := s.webhookIntent(ctx, logger, event.GatewayOrderID)
		if intent == nil {
			return err
		}

		reason := event.FailureReason
		if reason == "" {
			reason = "Payment failed"
		}

		if _, err := s.failPayment(ctx, intent.OrderID, reason); err != nil {
			return err
		}

		if err := s.paymentRepo.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusFailed, event.GatewayPaymentID, reason); err != nil {
			logger.Error("Failed to mark payment intent failed", slog.String("error", err.Error()))
		}

		metrics.PaymentEvent(providerName, string(models.IntentStatusFailed))

	case gateway.EventRefundProcessed:
		return s.completeRefund(ctx, logger, event)

	default:
		logger.Debug("Webhook event ignored")
	}

	return nil
}

func (s *paymentService) webhookIntent(ctx context.Context, logger *slog.Logger, gatewayOrderID string) (*models.PaymentIntent, error) {
	intent, err := s.paymentRepo.GetIntentByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			logger.Warn("Webhook for unknown payment", slog.String("gatewayOrderId", gatewayOrderID))

			return nil, nil
		}

		return nil, errors.DatabaseError("Failed to load payment").WithError(err)
	}

	return intent, nil
}

// completePayment moves the order to paid. Payment captured for an order the
// customer already cancelled is recorded and queued for refund.
func (s *paymentService) completePayment(ctx context.Context, orderID uuid.UUID, gatewayPaymentID, note string) (*models.Order, error) {
	refundQueued := false

	order, err := s.orderRepo.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		if o.IsPaid() || o.PaymentStatus == models.PaymentStatusRefunded {
			return repository.ErrNoChange
		}

		now := s.now()

		if o.OrderStatus == models.OrderStatusCancelled {
			if _, err := o.Apply(models.StatusChange{Payment: models.PaymentStatusCompleted, Note: "Payment captured after cancellation", At: now}); err != nil {
				return err
			}

			if o.Refund == nil {
				o.Refund = &models.RefundRequest{
					Status:      models.RefundStatusRequested,
					Amount:      o.TotalAmount,
					Reason:      "payment captured after cancellation",
					RequestedAt: now,
					UpdatedAt:   now,
				}
				refundQueued = true
			}
		} else if _, err := o.Apply(models.StatusChange{
			Order:   models.OrderStatusProcessing,
			Payment: models.PaymentStatusCompleted,
			Note:    note,
			At:      now,
		}); err != nil {
			return err
		}

		o.GatewayPaymentID = gatewayPaymentID

		return nil
	})
	if err != nil {
		return nil, orderUpdateError(err)
	}

	if refundQueued {
		metrics.RefundTransition(string(models.RefundStatusRequested))
	}

	return order, nil
}

// failPayment records a decline. Paid orders are left as they are.
func (s *paymentService) failPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.orderRepo.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		if o.IsPaid() || o.PaymentStatus == models.PaymentStatusRefunded {
			return repository.ErrNoChange
		}

		_, err := o.Apply(models.StatusChange{Payment: models.PaymentStatusFailed, Note: reason, At: s.now()})

		return err
	})

	return order, orderUpdateError(err)
}

func (s *paymentService) completeRefund(ctx context.Context, logger *slog.Logger, event *gateway.WebhookEvent) error {
	order, err := s.orderRepo.GetOrderByGatewayPaymentID(ctx, event.GatewayPaymentID)
	if err != nil {
		if !stdErrors.Is(err, repository.ErrNotFound) {
			return errors.DatabaseError("Failed to load order").WithError(err)
		}

		intent, lookupErr := s.webhookIntent(ctx, logger, event.GatewayOrderID)
		if intent == nil {
			return lookupErr
		}

		if order, err = s.orderRepo.GetOrderByID(ctx, intent.OrderID); err != nil {
			return errors.DatabaseError("Failed to load order").WithError(err)
		}
	}

	_, err = s.orderRepo.UpdateOrder(ctx, order.ID, func(o *models.Order) error {
		if o.PaymentStatus == models.PaymentStatusRefunded {
			return repository.ErrNoChange
		}

		now := s.now()

		if _, err := o.Apply(models.StatusChange{Payment: models.PaymentStatusRefunded, Note: "Refund processed", At: now}); err != nil {
			return err
		}

		if o.Refund == nil {
			o.Refund = &models.RefundRequest{
				Amount:      money.New(event.Amount, o.Currency),
				Reason:      "refunded at gateway",
				RequestedAt: now,
			}
		}

		o.Refund.Status = models.RefundStatusCompleted
		o.Refund.LastError = ""
		o.Refund.UpdatedAt = now

		if event.RefundID != "" {
			o.Refund.GatewayRefundID = event.RefundID
		}

		return nil
	})
	if err != nil {
		return orderUpdateError(err)
	}

	metrics.RefundTransition(string(models.RefundStatusCompleted))
	logger.Info("Refund completed", slog.String("orderId", order.ID.String()))

	return nil
}

func gatewayError(err error) error {
	var apiErr *gateway.APIError

	switch {
	case stdErrors.Is(err, gateway.ErrUnavailable):
		return errors.GatewayUnavailableError("Payment gateway is unavailable, please retry").WithError(err)
	case stdErrors.Is(err, gateway.ErrTimeout), stdErrors.Is(err, context.DeadlineExceeded):
		return errors.TimeoutError("Payment gateway timed out, please retry").WithError(err)
	case stdErrors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusUnauthorized && apiErr.StatusCode != http.StatusTooManyRequests {
			return errors.PaymentDeclinedError(apiErr.Description).WithError(err)
		}

		return errors.ThirdPartyError("Payment gateway error").WithError(err)
	default:
		return errors.ThirdPartyError("Payment gateway error").WithError(err)
	}
}
