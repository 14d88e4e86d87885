package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/pkg/gateway"
)

// RefundWorker submits requested refunds to the gateway. Completion is
// reported later by the gateway webhook.
type RefundWorker struct {
	orderRepo repository.OrderRepository
	providers map[string]gateway.Provider
	cfg       config.RefundWorker
	logger    *slog.Logger
}

func NewRefundWorker(orderRepo repository.OrderRepository, providers map[string]gateway.Provider, cfg config.RefundWorker, logger *slog.Logger) *RefundWorker {
	return &RefundWorker{
		orderRepo: orderRepo,
		providers: providers,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "refund_worker")),
	}
}

// Run polls until ctx is cancelled.
func (w *RefundWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Refund worker started", slog.Duration("interval", w.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Refund worker stopped")

			return
		case <-ticker.C:
			if n, err := w.ProcessPending(ctx); err != nil {
				w.logger.Error("Refund batch failed", slog.String("error", err.Error()))
			} else if n > 0 {
				w.logger.Info("Refunds submitted", slog.Int("count", n))
			}
		}
	}
}

// ProcessPending submits one batch and returns how many refunds the gateway
// accepted. A transient failure keeps the refund requested for the next poll;
// a client error from the gateway marks it failed. Resubmission after a lost
// update reuses the order's idempotency key.
func (w *RefundWorker) ProcessPending(ctx context.Context) (int, error) {
	orders, err := w.orderRepo.ListPendingRefunds(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	submitted := 0

	for _, order := range orders {
		if ctx.Err() != nil {
			return submitted, ctx.Err()
		}

		logger := w.logger.With(slog.String("orderId", order.ID.String()))

		provider, ok := w.providers[string(order.PaymentMethod)]
		if !ok {
			logger.Error("No gateway configured for refund", slog.String("method", string(order.PaymentMethod)))

			continue
		}

		refund, refundErr := provider.Refund(ctx, gateway.RefundRequest{
			GatewayPaymentID: order.GatewayPaymentID,
			Amount:           order.Refund.Amount.Amount,
			Currency:         order.Refund.Amount.Currency,
			Receipt:          order.OrderNumber + "-refund",
			IdempotencyKey:   order.OrderNumber + "-refund",
		})

		var apiErr *gateway.APIError
		rejected := errors.As(refundErr, &apiErr) && apiErr.Permanent()

		_, err := w.orderRepo.UpdateOrder(ctx, order.ID, func(o *models.Order) error {
			if o.Refund == nil || o.Refund.Status != models.RefundStatusRequested {
				return repository.ErrNoChange
			}

			o.Refund.UpdatedAt = time.Now()

			if refundErr != nil {
				o.Refund.LastError = refundErr.Error()
				if rejected {
					o.Refund.Status = models.RefundStatusFailed
				}

				return nil
			}

			o.Refund.Status = models.RefundStatusSubmitted
			o.Refund.GatewayRefundID = refund.ID
			o.Refund.LastError = ""

			return nil
		})
		if err != nil {
			logger.Error("Failed to record refund submission", slog.String("error", err.Error()))

			continue
		}

		if rejected {
			logger.Error("Gateway rejected refund permanently", slog.String("error", refundErr.Error()))
			metrics.RefundTransition(string(models.RefundStatusFailed))

			continue
		}

		if refundErr != nil {
			logger.Warn("Refund submission will be retried", slog.String("error", refundErr.Error()))

			continue
		}

		submitted++

		metrics.RefundTransition(string(models.RefundStatusSubmitted))
	}

	return submitted, nil
}
