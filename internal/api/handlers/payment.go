package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const maxWebhookBytes = 1 << 20

type PaymentHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, validator: validator.New()}
}

// CreatePaymentOrder godoc
//
//	@Summary		Open a gateway payment for an order
//	@Description	Creates a gateway order for the full order total. The amount must equal the order total and attempts are limited per order.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payment	body		models.CreatePaymentRequest		true	"Order and amount in minor units"
//	@Success		201		{object}	models.CreatePaymentResponse	"Gateway order for the checkout widget"
//	@Failure		400		{object}	response.ErrorResponse			"Validation error or amount mismatch"
//	@Failure		401		{object}	response.ErrorResponse			"Authentication required"
//	@Failure		404		{object}	response.ErrorResponse			"Order not found"
//	@Failure		409		{object}	response.ErrorResponse			"Order not payable or attempts exhausted"
//	@Failure		503		{object}	response.ErrorResponse			"Gateway unavailable"
//	@Security		BearerAuth
//	@Router			/payment/create-order [post]
func (h *PaymentHandler) CreatePaymentOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, logger, ok := requireClaims(w, r, "create payment order")
		if !ok {
			return
		}

		var req models.CreatePaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create payment input")

			return
		}

		logger = logger.With(slog.String("orderId", req.OrderID.String()))

		intent, err := h.paymentService.CreateIntent(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to create payment order", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Payment order created",
			slog.String("provider", intent.Provider),
			slog.String("gatewayOrderId", intent.OrderID),
			slog.Int("attempt", intent.Attempt))
		response.Success(w, http.StatusCreated, intent)
	}
}

// VerifyPayment godoc
//
//	@Summary		Confirm a payment from the checkout widget
//	@Description	Verifies the gateway signature and captures the payment against the order. Repeated confirmations of the same payment are no-ops.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payment	body		models.VerifyPaymentRequest	true	"Gateway identifiers and signature"
//	@Success		200		{object}	models.OrderResponse		"Paid order"
//	@Failure		400		{object}	response.ErrorResponse		"Signature invalid"
//	@Failure		401		{object}	response.ErrorResponse		"Authentication required"
//	@Failure		402		{object}	response.ErrorResponse		"Payment not captured"
//	@Failure		404		{object}	response.ErrorResponse		"Payment not found"
//	@Security		BearerAuth
//	@Router			/payment/verify [post]
func (h *PaymentHandler) VerifyPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, logger, ok := requireClaims(w, r, "verify payment")
		if !ok {
			return
		}

		var req models.VerifyPaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid verify payment input")

			return
		}

		logger = logger.With(
			slog.String("orderId", req.OrderID.String()),
			slog.String("gatewayOrderId", req.RazorpayOrderID))

		order, err := h.paymentService.Verify(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Warn("Payment verification failed", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Payment verified", slog.String("paymentStatus", string(order.PaymentStatus)))
		response.Success(w, http.StatusOK, models.OrderResponse{Order: order})
	}
}

// PaymentFailure godoc
//
//	@Summary		Report a failed payment attempt
//	@Description	Records a decline reported by the checkout widget. The order stays payable until attempts run out.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			failure	body		models.PaymentFailureRequest	true	"Gateway order and reason"
//	@Success		200		{object}	models.OrderResponse			"Order after the failure"
//	@Failure		401		{object}	response.ErrorResponse			"Authentication required"
//	@Failure		404		{object}	response.ErrorResponse			"Payment not found"
//	@Security		BearerAuth
//	@Router			/payment/failure [post]
func (h *PaymentHandler) PaymentFailure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, logger, ok := requireClaims(w, r, "payment failure")
		if !ok {
			return
		}

		var req models.PaymentFailureRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid payment failure input")

			return
		}

		order, err := h.paymentService.ReportFailure(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Warn("Failed to record payment failure", slog.String("orderId", req.OrderID.String()), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Payment failure recorded", slog.String("orderId", req.OrderID.String()))
		response.Success(w, http.StatusOK, models.OrderResponse{Order: order})
	}
}

// Webhook godoc
//
//	@Summary		Receive a gateway webhook
//	@Description	Authenticated by the gateway signature header, not by a session. Events for unknown payments are acknowledged.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string					true	"Gateway name"	Enums(razorpay, stripe)
//	@Success		200			{object}	map[string]string		"Acknowledged"
//	@Failure		400			{object}	response.ErrorResponse	"Signature invalid or payload malformed"
//	@Failure		404			{object}	response.ErrorResponse	"Unknown provider"
//	@Router			/payment/webhook/{provider} [post]
func (h *PaymentHandler) Webhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		logger := middleware.LoggerFromContext(r.Context()).With(slog.String("provider", provider))

		defer r.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
		if err != nil || len(payload) > maxWebhookBytes {
			logger.Warn("Unreadable webhook body")
			response.Error(w, errors.BadRequestError("Invalid webhook body"))

			return
		}

		if err := h.paymentService.HandleWebhook(r.Context(), provider, payload, r.Header); err != nil {
			logger.Warn("Webhook rejected", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
