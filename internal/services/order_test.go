package service_test

import (
	"errors"
	"strings"
	"testing"

	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	serviceMocks "github.com/aaravmahajanofficial/storefront/internal/services/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderServiceDeps struct {
	orders    *mocks.OrderRepository
	carts     *mocks.CartRepository
	products  *mocks.ProductRepository
	addresses *mocks.AddressRepository
	coupons   *serviceMocks.CouponService
	notifier  *serviceMocks.NotificationService
}

func setupOrderService(t *testing.T) (service.OrderService, orderServiceDeps) {
	deps := orderServiceDeps{
		orders:    mocks.NewOrderRepository(t),
		carts:     mocks.NewCartRepository(t),
		products:  mocks.NewProductRepository(t),
		addresses: mocks.NewAddressRepository(t),
		coupons:   serviceMocks.NewCouponService(t),
		notifier:  serviceMocks.NewNotificationService(t),
	}

	svc := service.NewOrderService(deps.orders, deps.carts, deps.products, deps.addresses, deps.coupons, deps.notifier, newTestEngine())

	return svc, deps
}

type checkoutFixture struct {
	userID  uuid.UUID
	product *models.Product
	cart    *models.Cart
	address *models.Address
}

// newCheckoutFixture builds a cart holding two units captured at 20000 while
// the catalogue now sells the product at 25000.
func newCheckoutFixture(t *testing.T) checkoutFixture {
	userID := uuid.New()
	product := newTestProduct(25000, 10)

	stale := *product
	stale.Price = money.New(20000, "INR")

	return checkoutFixture{
		userID:  userID,
		product: product,
		cart:    cartHolding(t, userID, &stale, 2),
		address: &models.Address{ID: uuid.New(), UserID: userID, Name: "Home", Line1: "1 MG Road", City: "Pune", Country: "IN"},
	}
}

func (f checkoutFixture) expectCatalogue(deps orderServiceDeps) {
	deps.carts.On("GetCartByUserID", mock.Anything, f.userID).Return(f.cart, nil).Once()
	deps.products.On("GetProductsByIDs", mock.Anything, []uuid.UUID{f.product.ID}).
		Return(map[uuid.UUID]*models.Product{f.product.ID: f.product}, nil).Once()
}

func TestOrderService_PlaceOrder(t *testing.T) {
	t.Run("Success - Re-priced order with coupon", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)
		coupon := newTestCoupon("SAVE10", models.DiscountTypePercent, "10")

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.coupons.On("ResolveCoupon", mock.Anything, f.userID, "save10").
			Return(&pricing.CouponSelection{Coupon: coupon}, nil).Once()
		deps.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order"), coupon).Return(nil).Once()
		deps.carts.On("SaveCart", mock.Anything, mock.MatchedBy(func(c *models.Cart) bool { return len(c.Items) == 0 })).Return(nil).Once()
		deps.notifier.On("NotifyOrderPlaced", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		// Act
		order, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{
			AddressID: f.address.ID, CouponCode: "save10", PaymentMethod: "razorpay",
		})

		// Assert
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
		require.Len(t, order.Items, 1)
		assert.Equal(t, int64(25000), order.Items[0].UnitPrice.Amount)
		assert.Equal(t, int64(50000), order.Items[0].LineSubtotal.Amount)
		assert.Equal(t, int64(50000), order.Subtotal.Amount)
		assert.True(t, order.ShippingCharges.IsZero())
		assert.Equal(t, int64(5000), order.DiscountAmount.Amount)
		assert.Equal(t, int64(8100), order.TaxAmount.Amount)
		assert.Equal(t, int64(53100), order.TotalAmount.Amount)
		assert.Equal(t, "SAVE10", order.CouponCode)
		assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
		assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
		require.Len(t, order.StatusHistory, 1)
		assert.Equal(t, f.address.ID, order.BillingAddress.ID)
	})

	t.Run("Success - Cash on delivery is paid at creation", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order"), (*models.Coupon)(nil)).Return(nil).Once()
		deps.carts.On("SaveCart", mock.Anything, mock.AnythingOfType("*models.Cart")).Return(nil).Once()
		deps.notifier.On("NotifyOrderPlaced", mock.Anything, mock.AnythingOfType("*models.Order")).
			Return(errors.New("sendgrid down")).Once()

		// Act
		order, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{AddressID: f.address.ID, PaymentMethod: "cod"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
		assert.Equal(t, models.PaymentStatusCompleted, order.StatusHistory[0].PaymentStatus)
		assert.True(t, order.DiscountAmount.IsZero())
	})

	t.Run("Failure - Empty cart", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		userID := uuid.New()

		deps.carts.On("GetCartByUserID", mock.Anything, userID).Return(models.NewCart(userID, "INR"), nil).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), userID, &models.CheckoutRequest{AddressID: uuid.New(), PaymentMethod: "cod"})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeEmptyCart)
	})

	t.Run("Failure - Address owned by someone else", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)
		f.address.UserID = uuid.New()

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{AddressID: f.address.ID, PaymentMethod: "cod"})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeStaleAddress)
	})

	t.Run("Failure - Product withdrawn since it was added", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)

		deps.carts.On("GetCartByUserID", mock.Anything, f.userID).Return(f.cart, nil).Once()
		deps.products.On("GetProductsByIDs", mock.Anything, []uuid.UUID{f.product.ID}).
			Return(map[uuid.UUID]*models.Product{}, nil).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{AddressID: f.address.ID, PaymentMethod: "cod"})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeBadRequest)
	})

	t.Run("Failure - Coupon below minimum cart value", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)
		coupon := newTestCoupon("BIGSPEND", models.DiscountTypeFlat, "1000")
		coupon.MinCartValue = money.New(100000, "INR")

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.coupons.On("ResolveCoupon", mock.Anything, f.userID, "BIGSPEND").
			Return(&pricing.CouponSelection{Coupon: coupon}, nil).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{
			AddressID: f.address.ID, CouponCode: "BIGSPEND", PaymentMethod: "razorpay",
		})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeCouponMinCartValue)
		deps.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Coupon exhausted by a concurrent checkout", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)
		coupon := newTestCoupon("LAST1", models.DiscountTypeFlat, "1000")

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.coupons.On("ResolveCoupon", mock.Anything, f.userID, "LAST1").
			Return(&pricing.CouponSelection{Coupon: coupon}, nil).Once()
		deps.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order"), coupon).
			Return(repository.ErrCouponUsageLimit).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{
			AddressID: f.address.ID, CouponCode: "LAST1", PaymentMethod: "razorpay",
		})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeCouponUsageLimit)
		deps.carts.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Coupon removed during checkout", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)
		coupon := newTestCoupon("GONE", models.DiscountTypeFlat, "1000")

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.coupons.On("ResolveCoupon", mock.Anything, f.userID, "GONE").
			Return(&pricing.CouponSelection{Coupon: coupon}, nil).Once()
		deps.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order"), coupon).
			Return(repository.ErrNotFound).Once()

		// Act
		_, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{
			AddressID: f.address.ID, CouponCode: "GONE", PaymentMethod: "razorpay",
		})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeCouponNotFound)
		deps.carts.AssertNotCalled(t, "SaveCart", mock.Anything, mock.Anything)
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	t.Run("Failure - Other users' orders are hidden", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

		// Act
		_, err := svc.GetOrder(t.Context(), &models.Claims{UserID: uuid.New(), Role: models.RoleCustomer}, order.ID)

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Success - Admin sees any order", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.orders.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

		// Act
		got, err := svc.GetOrder(t.Context(), &models.Claims{UserID: uuid.New(), Role: models.RoleAdmin}, order.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
	})

	t.Run("Success - Placed lines survive a catalogue price change", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		f := newCheckoutFixture(t)

		var stored *models.Order

		f.expectCatalogue(deps)
		deps.addresses.On("GetAddressByID", mock.Anything, f.address.ID).Return(f.address, nil).Once()
		deps.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order"), (*models.Coupon)(nil)).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Order) }).
			Return(nil).Once()
		deps.carts.On("SaveCart", mock.Anything, mock.AnythingOfType("*models.Cart")).Return(nil).Once()
		deps.notifier.On("NotifyOrderPlaced", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()

		placed, err := svc.PlaceOrder(t.Context(), f.userID, &models.CheckoutRequest{AddressID: f.address.ID, PaymentMethod: "razorpay"})
		require.NoError(t, err)

		want := append([]models.OrderItem(nil), placed.Items...)

		f.product.Price = money.New(99900, "INR")
		f.product.Name = "Renamed Mug"

		deps.orders.On("GetOrderByID", mock.Anything, placed.ID).Return(stored, nil).Once()

		// Act
		got, err := svc.GetOrder(t.Context(), &models.Claims{UserID: f.userID, Role: models.RoleCustomer}, placed.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, want, got.Items)
		assert.Equal(t, "Ceramic Mug", got.Items[0].Name)
		assert.Equal(t, int64(25000), got.Items[0].UnitPrice.Amount)
		assert.Equal(t, placed.TotalAmount, got.TotalAmount)
	})

	t.Run("Success - List is paginated", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		userID := uuid.New()

		deps.orders.On("ListOrdersByUser", mock.Anything, userID, 1, 10).
			Return([]*models.Order{newPendingOrder(userID, models.PaymentMethodCOD)}, 11, nil).Once()

		// Act
		resp, err := svc.ListOrders(t.Context(), userID, 1, 10)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalPages)
	})
}

func TestOrderService_CancelOrder(t *testing.T) {
	t.Run("Success - Paid gateway order queues a refund", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		got, err := svc.CancelOrder(t.Context(), userID, order.ID, &models.CancelOrderRequest{Reason: "Changed my <i>mind</i>"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		assert.Equal(t, "Changed my mind", got.CancelReason)
		require.NotNil(t, got.Refund)
		assert.Equal(t, models.RefundStatusRequested, got.Refund.Status)
		assert.Equal(t, got.TotalAmount, got.Refund.Amount)
		assert.Len(t, got.StatusHistory, 2)
	})

	t.Run("Success - Cash on delivery needs no refund", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodCOD)
		order.PaymentStatus = models.PaymentStatusCompleted

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		got, err := svc.CancelOrder(t.Context(), userID, order.ID, &models.CancelOrderRequest{})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		assert.Nil(t, got.Refund)
	})

	t.Run("Failure - Shipped orders cannot be cancelled", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		userID := uuid.New()
		order := newPendingOrder(userID, models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusShipped

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		_, err := svc.CancelOrder(t.Context(), userID, order.ID, &models.CancelOrderRequest{})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeInvalidTransition)
		assert.Equal(t, models.OrderStatusShipped, order.OrderStatus)
	})

	t.Run("Failure - Not the owner", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		_, err := svc.CancelOrder(t.Context(), uuid.New(), order.ID, &models.CancelOrderRequest{})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	t.Run("Success - Processing to shipped", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		got, err := svc.UpdateOrderStatus(t.Context(), order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusShipped, Note: "AWB 1234"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, got.OrderStatus)
		assert.Equal(t, "AWB 1234", got.StatusHistory[len(got.StatusHistory)-1].Note)
	})

	t.Run("Success - Admin cancel of a paid order queues a refund", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusCompleted

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		got, err := svc.UpdateOrderStatus(t.Context(), order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
		require.NotNil(t, got.Refund)
		assert.Equal(t, models.RefundStatusRequested, got.Refund.Status)
		assert.Equal(t, got.TotalAmount, got.Refund.Amount)
		assert.Equal(t, "Cancelled by admin", got.StatusHistory[len(got.StatusHistory)-1].Note)
	})

	t.Run("Success - Admin cancel of an unpaid order queues nothing", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		got, err := svc.UpdateOrderStatus(t.Context(), order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusCancelled, Note: "Fraud check"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		assert.Nil(t, got.Refund)
		assert.Equal(t, "Fraud check", got.StatusHistory[len(got.StatusHistory)-1].Note)
	})

	t.Run("Failure - Admin cannot cancel a shipped order", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)
		order.OrderStatus = models.OrderStatusShipped
		order.PaymentStatus = models.PaymentStatusCompleted

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		_, err := svc.UpdateOrderStatus(t.Context(), order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeInvalidTransition)
		assert.Nil(t, order.Refund)
	})

	t.Run("Failure - Skipping states", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		order := newPendingOrder(uuid.New(), models.PaymentMethodRazorpay)

		deps.orders.On("UpdateOrder", mock.Anything, order.ID, mock.Anything).Return(applyTo(order)).Once()

		// Act
		_, err := svc.UpdateOrderStatus(t.Context(), order.ID, &models.UpdateOrderStatusRequest{Status: models.OrderStatusDelivered})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeInvalidTransition)
		assert.Len(t, order.StatusHistory, 1)
	})

	t.Run("Failure - Unknown order", func(t *testing.T) {
		// Arrange
		svc, deps := setupOrderService(t)
		id := uuid.New()

		deps.orders.On("UpdateOrder", mock.Anything, id, mock.Anything).Return(nil, repository.ErrNotFound).Once()

		// Act
		_, err := svc.UpdateOrderStatus(t.Context(), id, &models.UpdateOrderStatusRequest{Status: models.OrderStatusShipped})

		// Assert
		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})
}
