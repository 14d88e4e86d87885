package service_test

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/pkg/gateway"
	gatewaymocks "github.com/aaravmahajanofficial/storefront/pkg/gateway/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaxAttempts = 3

type paymentServiceDeps struct {
	orders   *mocks.OrderRepository
	payments *mocks.PaymentRepository
	razorpay *gatewaymocks.Provider
}

func setupPaymentService(t *testing.T) (service.PaymentService, paymentServiceDeps) {
	deps := paymentServiceDeps{
		orders:   mocks.NewOrderRepository(t),
		payments: mocks.NewPaymentRepository(t),
		razorpay: gatewaymocks.NewProvider(t),
	}

	deps.razorpay.On("Name").Return("razorpay").Maybe()

	providers := map[string]gateway.Provider{"razorpay": deps.razorpay}

	return service.NewPaymentService(deps.orders, deps.payments, providers, testMaxAttempts), deps
}

func newIntent(order *models.Order, gatewayOrderID string) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:             uuid.New(),
		OrderID:        order.ID,
		UserID:         order.UserID,
		Provider:       "razorpay",
		GatewayOrderID: gatewayOrderID,
		Amount:         order.TotalAmount,
		Attempt:        1,
		Status:         models.IntentStatusCreated,
	}
}

func verifyRequest(order *models.Order) *models.VerifyPaymentRequest {
	return &models.VerifyPaymentRequest{
		OrderID:           order.ID,
		RazorpayOrderID:   "order_GW1",
		RazorpayPaymentID: "pay_GW1",
		RazorpaySignature: "sig",
	}
}

func TestPaymentService_CreateIntent(t *testing.T) {
	t.Run("Success - Gateway order recorded", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()
		deps.razorpay.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
			return req.Amount == 53100 && req.Currency == "INR" && req.Receipt == "ORD-01JTESTORDER-1" &&
				req.Notes["order_id"] == order.ID.String() && req.Notes["client_receipt"] == "rcpt-7"
		})).Return(&gateway.Order{ID: "order_GW1", Amount: 53100, Currency: "INR", Status: "created"}, nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("CreateIntent", mock.Anything, mock.MatchedBy(func(p *models.PaymentIntent) bool {
			return p.GatewayOrderID == "order_GW1" && p.OrderID == order.ID && p.Attempt == 1 && p.Amount.Amount == 53100
		})).Return(nil).Once()
		deps.razorpay.On("PublicKey").Return("rzp_test_key").Once()

		// Act
		resp, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{
			OrderID: order.ID, Amount: 53100, Currency: "inr", Receipt: "rcpt-7",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "order_GW1", resp.OrderID)
		assert.Equal(t, "rzp_test_key", resp.Key)
		assert.Equal(t, 1, resp.Attempt)
		assert.Equal(t, "order_GW1", order.GatewayOrderID)
		assert.Equal(t, 1, order.PaymentAttempts)
	})

	t.Run("Failure - Amount differs from the order total", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

		// Act
		_, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{OrderID: order.ID, Amount: 100})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeAmountMismatch)
		deps.razorpay.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Attempts exhausted", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)
		order.PaymentStatus = models.PaymentStatusFailed
		order.PaymentAttempts = testMaxAttempts

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

		// Act
		_, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{OrderID: order.ID, Amount: 53100})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeTooManyAttempts)
	})

	t.Run("Failure - Cash on delivery", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodCOD)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

		// Act
		_, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{OrderID: order.ID, Amount: 53100})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeBadRequest)
	})

	t.Run("Failure - Gateway circuit open", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()
		deps.razorpay.On("CreateOrder", mock.Anything, mock.AnythingOfType("gateway.OrderRequest")).
			Return(nil, fmt.Errorf("razorpay: %w", gateway.ErrUnavailable)).Once()

		// Act
		_, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{OrderID: order.ID, Amount: 53100})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeGatewayUnavailable)
		deps.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Gateway rejects the request", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()
		deps.razorpay.On("CreateOrder", mock.Anything, mock.AnythingOfType("gateway.OrderRequest")).
			Return(nil, &gateway.APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST_ERROR", Description: "amount exceeds maximum"}).Once()

		// Act
		_, err := svc.CreateIntent(t.Context(), userID, &models.CreatePaymentRequest{OrderID: order.ID, Amount: 53100})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodePaymentDeclined)
	})
}

func TestPaymentService_Verify(t *testing.T) {
	t.Run("Success - Order moves to processing", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.razorpay.On("VerifyPayment", mock.Anything, gateway.Confirmation{
			GatewayOrderID: "order_GW1", GatewayPaymentID: "pay_GW1", Signature: "sig",
		}).Return(nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusVerified, "pay_GW1", "").Return(nil).Once()

		// Act
		got, err := svc.Verify(t.Context(), order.UserID, verifyRequest(order))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
		assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
		assert.Equal(t, "pay_GW1", got.GatewayPaymentID)
		assert.Len(t, got.StatusHistory, 2)
	})

	t.Run("Failure - Tampered signature leaves the order alone", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.razorpay.On("VerifyPayment", mock.Anything, mock.AnythingOfType("gateway.Confirmation")).
			Return(fmt.Errorf("razorpay: %w", gateway.ErrSignatureInvalid)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusRejected, "pay_GW1", "signature mismatch").
			Return(nil).Once()

		// Act
		_, err := svc.Verify(t.Context(), order.UserID, verifyRequest(order))

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeSignatureInvalid)
		deps.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	})

	t.Run("Success - Repeated confirmation is a no-op", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.razorpay.On("VerifyPayment", mock.Anything, mock.AnythingOfType("gateway.Confirmation")).Return(nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusVerified, "pay_GW1", "").Return(nil).Once()

		// Act
		got, err := svc.Verify(t.Context(), order.UserID, verifyRequest(order))

		// Assert
		require.NoError(t, err)
		assert.Len(t, got.StatusHistory, 1)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("Failure - Someone else's payment", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(newIntent(order, "order_GW1"), nil).Once()

		// Act
		_, err := svc.Verify(t.Context(), uuid.New(), verifyRequest(order))

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Success - Capture after cancellation queues a refund", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusCancelled
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.razorpay.On("VerifyPayment", mock.Anything, mock.AnythingOfType("gateway.Confirmation")).Return(nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusVerified, "pay_GW1", "").Return(nil).Once()

		// Act
		got, err := svc.Verify(t.Context(), order.UserID, verifyRequest(order))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
		require.NotNil(t, got.Refund)
		assert.Equal(t, models.RefundStatusRequested, got.Refund.Status)
		assert.Equal(t, int64(53100), got.Refund.Amount.Amount)
	})

	t.Run("Failure - Payment not captured", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(newIntent(order, "order_GW1"), nil).Once()
		deps.razorpay.On("VerifyPayment", mock.Anything, mock.AnythingOfType("gateway.Confirmation")).Return(gateway.ErrPaymentNotCaptured).Once()

		// Act
		_, err := svc.Verify(t.Context(), order.UserID, verifyRequest(order))

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodePaymentDeclined)
	})
}

// memoryOrders serializes UpdateOrder the way the row lock does, handing each
// mutator its own copy of the stored order.
type memoryOrders struct {
	repository.OrderRepository

	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.StatusHistory = append([]models.StatusHistoryEntry(nil), o.StatusHistory...)

	if o.Refund != nil {
		refund := *o.Refund
		c.Refund = &refund
	}

	return &c
}

func (m *memoryOrders) UpdateOrder(_ context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	working := cloneOrder(stored)

	if err := fn(working); err != nil {
		if stdErrors.Is(err, repository.ErrNoChange) {
			return cloneOrder(stored), nil
		}

		return nil, err
	}

	working.Version++
	m.orders[id] = working

	return cloneOrder(working), nil
}

func TestPaymentService_ConcurrentVerify(t *testing.T) {
	// Arrange
	order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
	intent := newIntent(order, "order_GW1")
	store := &memoryOrders{orders: map[uuid.UUID]*models.Order{order.ID: cloneOrder(order)}}

	payments := mocks.NewPaymentRepository(t)
	razorpay := gatewaymocks.NewProvider(t)
	razorpay.On("Name").Return("razorpay").Maybe()

	const callers = 8

	payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Times(callers)
	razorpay.On("VerifyPayment", mock.Anything, mock.AnythingOfType("gateway.Confirmation")).Return(nil).Times(callers)
	payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusVerified, "pay_GW1", "").Return(nil).Times(callers)

	svc := service.NewPaymentService(store, payments, map[string]gateway.Provider{"razorpay": razorpay}, testMaxAttempts)

	// Act
	var wg sync.WaitGroup

	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = svc.Verify(context.Background(), order.UserID, verifyRequest(order))
		}()
	}

	wg.Wait()

	// Assert
	for _, err := range errs {
		assert.NoError(t, err)
	}

	final := store.orders[order.ID]
	assert.Equal(t, models.PaymentStatusCompleted, final.PaymentStatus)
	assert.Len(t, final.StatusHistory, 2)
	assert.Equal(t, 2, final.Version)
}

func TestPaymentService_ReportFailure(t *testing.T) {
	t.Run("Success - Decline recorded", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusFailed, "pay_GW1", "Card declined").Return(nil).Once()

		// Act
		got, err := svc.ReportFailure(t.Context(), order.UserID, &models.PaymentFailureRequest{
			OrderID: order.ID, RazorpayOrderID: "order_GW1", RazorpayPaymentID: "pay_GW1", Reason: "<script>x</script>Card declined",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
		assert.Equal(t, models.OrderStatusPending, got.OrderStatus)
	})

	t.Run("Success - Paid order ignores a late decline", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.PaymentStatus = models.PaymentStatusCompleted
		intent := newIntent(order, "order_GW1")

		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusFailed, "", "Payment failed").Return(nil).Once()

		// Act
		got, err := svc.ReportFailure(t.Context(), order.UserID, &models.PaymentFailureRequest{OrderID: order.ID, RazorpayOrderID: "order_GW1"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	})
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	header := http.Header{"X-Razorpay-Signature": []string{"sig"}}
	payload := []byte(`{"event":"payment.captured"}`)

	t.Run("Failure - Bad signature", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)

		deps.razorpay.On("ParseWebhook", payload, header).Return(nil, fmt.Errorf("razorpay: %w", gateway.ErrSignatureInvalid)).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeSignatureInvalid)
	})

	t.Run("Failure - Unknown provider", func(t *testing.T) {
		// Arrange
		svc, _ := setupPaymentService(t)

		// Act
		err := svc.HandleWebhook(t.Context(), "paypal", payload, header)

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Success - Captured payment completes the order", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		intent := newIntent(order, "order_GW1")

		deps.razorpay.On("ParseWebhook", payload, header).Return(&gateway.WebhookEvent{
			ID: "evt_1", Type: gateway.EventPaymentCaptured, GatewayOrderID: "order_GW1", GatewayPaymentID: "pay_GW1",
			Amount: 53100, Currency: "inr",
		}, nil).Once()
		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(intent, nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()
		deps.payments.On("UpdateIntentStatus", mock.Anything, intent.ID, models.IntentStatusVerified, "pay_GW1", "").Return(nil).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
		assert.Equal(t, "Payment captured", order.StatusHistory[1].Note)
	})

	t.Run("Success - Captured amount mismatch is acknowledged without effect", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.razorpay.On("ParseWebhook", payload, header).Return(&gateway.WebhookEvent{
			ID: "evt_2", Type: gateway.EventPaymentCaptured, GatewayOrderID: "order_GW1", GatewayPaymentID: "pay_GW1",
			Amount: 100, Currency: "INR",
		}, nil).Once()
		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_GW1").Return(newIntent(order, "order_GW1"), nil).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		require.NoError(t, err)
		deps.orders.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success - Unknown payment is acknowledged", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)

		deps.razorpay.On("ParseWebhook", payload, header).Return(&gateway.WebhookEvent{
			ID: "evt_3", Type: gateway.EventPaymentFailed, GatewayOrderID: "order_UNKNOWN",
		}, nil).Once()
		deps.payments.On("GetIntentByGatewayOrderID", mock.Anything, "order_UNKNOWN").Return(nil, repository.ErrNotFound).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("Success - Refund processed closes the refund", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusCancelled
		order.PaymentStatus = models.PaymentStatusCompleted
		order.GatewayPaymentID = "pay_GW1"
		order.Refund = &models.RefundRequest{Status: models.RefundStatusSubmitted, Amount: money.New(53100, "INR")}

		deps.razorpay.On("ParseWebhook", payload, header).Return(&gateway.WebhookEvent{
			ID: "evt_4", Type: gateway.EventRefundProcessed, GatewayPaymentID: "pay_GW1", RefundID: "rfnd_1", Amount: 53100, Currency: "INR",
		}, nil).Once()
		deps.orders.On("GetOrderByGatewayPaymentID", mock.Anything, "pay_GW1").Return(order, nil).Once()
		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
		assert.Equal(t, models.RefundStatusCompleted, order.Refund.Status)
		assert.Equal(t, "rfnd_1", order.Refund.GatewayRefundID)
	})

	t.Run("Failure - Unparseable payload", func(t *testing.T) {
		// Arrange
		svc, deps := setupPaymentService(t)

		deps.razorpay.On("ParseWebhook", payload, header).Return(nil, stdErrors.New("unexpected end of JSON input")).Once()

		// Act
		err := svc.HandleWebhook(t.Context(), "razorpay", payload, header)

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeBadRequest)
	})
}
