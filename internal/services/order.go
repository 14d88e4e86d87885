package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/telemetry"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.Order, error)
	GetOrder(ctx context.Context, claims *models.Claims, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*models.PaginatedResponse, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, id uuid.UUID, req *models.CancelOrderRequest) (*models.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	addressRepo repository.AddressRepository
	coupons     CouponService
	notifier    NotificationService
	engine      *pricing.Engine
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	addressRepo repository.AddressRepository,
	coupons CouponService,
	notifier NotificationService,
	engine *pricing.Engine,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		coupons:     coupons,
		notifier:    notifier,
		engine:      engine,
	}
}

// PlaceOrder turns the user's cart into an order. Lines are re-priced from the
// catalogue, so the order reflects current prices rather than those captured
// when items were added.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (_ *models.Order, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "OrderService.PlaceOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
	}()

	logger := middleware.LoggerFromContext(ctx)

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.EmptyCartError()
		}

		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	if len(cart.Items) == 0 {
		return nil, errors.EmptyCartError()
	}

	priced, err := s.repriceCart(ctx, cart)
	if err != nil {
		return nil, err
	}

	shipping, err := s.resolveAddress(ctx, userID, req.AddressID)
	if err != nil {
		return nil, err
	}

	billing := shipping
	if req.BillingAddressID != nil && *req.BillingAddressID != req.AddressID {
		if billing, err = s.resolveAddress(ctx, userID, *req.BillingAddressID); err != nil {
			return nil, err
		}
	}

	var selection *pricing.CouponSelection

	if req.CouponCode != "" {
		if selection, err = s.coupons.ResolveCoupon(ctx, userID, req.CouponCode); err != nil {
			return nil, err
		}
	}

	result, err := s.engine.Price(priced, selection)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && selection != nil {
			metrics.CouponRejected(appErr.Code)
		}

		return nil, err
	}

	now := s.engine.Now()
	method := models.PaymentMethod(req.PaymentMethod)

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-" + ulid.Make().String(),
		UserID:          userID,
		Currency:        result.Subtotal.Currency,
		Items:           make([]models.OrderItem, 0, len(priced.Items)),
		ShippingAddress: *shipping,
		BillingAddress:  *billing,
		Subtotal:        result.Subtotal,
		ShippingCharges: result.ShippingCharges,
		TaxAmount:       result.TaxAmount,
		DiscountAmount:  result.DiscountAmount,
		TotalAmount:     result.TotalAmount,
		CouponCode:      result.CouponCode,
		PaymentMethod:   method,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range priced.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    item.ProductID,
			Name:         item.Name,
			UnitPrice:    item.UnitPrice,
			Quantity:     item.Quantity,
			LineSubtotal: item.Subtotal(),
		})
	}

	if !method.UsesGateway() {
		order.PaymentStatus = models.PaymentStatusCompleted
	}

	note := "Order placed"
	if req.Notes != "" {
		note = utils.SanitizeText(req.Notes)
	}

	order.StatusHistory = []models.StatusHistoryEntry{{
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		Timestamp:     now,
		Note:          note,
	}}

	var redeemed *models.Coupon
	if selection != nil && result.CouponCode != "" {
		redeemed = selection.Coupon
	}

	if err := s.orderRepo.CreateOrder(ctx, order, redeemed); err != nil {
		switch {
		case stdErrors.Is(err, repository.ErrCouponUsageLimit):
			metrics.CouponRejected(errors.ErrCodeCouponUsageLimit)

			return nil, errors.CouponRejected(errors.ErrCodeCouponUsageLimit, "This coupon has reached its usage limit")
		case stdErrors.Is(err, repository.ErrCouponPerUserLimit):
			metrics.CouponRejected(errors.ErrCodeCouponPerUserLimit)

			return nil, errors.CouponRejected(errors.ErrCodeCouponPerUserLimit, "You have already used this coupon the maximum number of times")
		case stdErrors.Is(err, repository.ErrNotFound):
			return nil, errors.CouponRejected(errors.ErrCodeCouponNotFound, "Coupon not found")
		default:
			return nil, errors.DatabaseError("Failed to create order").WithError(err)
		}
	}

	span.SetAttributes(
		attribute.String("order.number", order.OrderNumber),
		attribute.Int64("order.total", order.TotalAmount.Amount),
	)

	cart.Clear()

	if err := s.cartRepo.SaveCart(ctx, cart); err != nil {
		logger.Error("Failed to clear cart after checkout",
			slog.String("orderId", order.ID.String()), slog.String("error", err.Error()))
	}

	if err := s.notifier.NotifyOrderPlaced(ctx, order); err != nil {
		logger.Warn("Order confirmation not sent",
			slog.String("orderId", order.ID.String()), slog.String("error", err.Error()))
	}

	metrics.OrderPlaced(string(method))
	logger.Info("Order placed",
		slog.String("orderId", order.ID.String()),
		slog.String("orderNumber", order.OrderNumber),
		slog.String("total", order.TotalAmount.String()))

	return order, nil
}

// repriceCart returns a copy of cart whose lines carry the catalogue's
// current name, category and price.
func (s *orderService) repriceCart(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	products, err := s.productRepo.GetProductsByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, errors.DatabaseError("Failed to load products").WithError(err)
	}

	priced := &models.Cart{
		ID:       cart.ID,
		UserID:   cart.UserID,
		Currency: cart.Currency,
		Items:    make([]models.CartItem, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.Purchasable() {
			return nil, errors.BadRequestError(fmt.Sprintf("%s is no longer available", item.Name))
		}

		if product.StockQuantity < item.Quantity {
			return nil, errors.InsufficientStockError(fmt.Sprintf("Only %d units of %s are available", product.StockQuantity, product.Name))
		}

		if product.Price.Currency != cart.Currency {
			return nil, errors.CurrencyMismatchError(fmt.Sprintf("%s is not sold in %s", product.Name, cart.Currency))
		}

		priced.Items = append(priced.Items, models.CartItem{
			ProductID:  product.ID,
			CategoryID: product.CategoryID,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Quantity:   item.Quantity,
		})
	}

	return priced, nil
}

func (s *orderService) resolveAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	address, err := s.addressRepo.GetAddressByID(ctx, addressID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.StaleAddressError()
		}

		return nil, errors.DatabaseError("Failed to load address").WithError(err)
	}

	if address.UserID != userID {
		return nil, errors.StaleAddressError()
	}

	return address, nil
}

func (s *orderService) GetOrder(ctx context.Context, claims *models.Claims, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to load order").WithError(err)
	}

	// Other users' orders are reported as missing.
	if !claims.IsAdmin() && order.UserID != claims.UserID {
		return nil, errors.NotFoundError("Order not found")
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*models.PaginatedResponse, error) {
	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	resp := models.NewPaginatedResponse(orders, total, page, size)

	return &resp, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if !req.Status.Valid() {
		return nil, errors.AddValidationError("status", "unknown order status")
	}

	note := utils.SanitizeText(req.Note)

	order, err := s.orderRepo.UpdateOrder(ctx, id, func(o *models.Order) error {
		now := s.engine.Now()

		if req.Status == models.OrderStatusCancelled {
			if o.OrderStatus == models.OrderStatusCancelled {
				return repository.ErrNoChange
			}

			if note == "" {
				note = "Cancelled by admin"
			}

			return cancelOrder(o, note, "", now)
		}

		changed, err := o.Apply(models.StatusChange{Order: req.Status, Note: note, At: now})
		if err != nil {
			return err
		}

		if !changed {
			return repository.ErrNoChange
		}

		return nil
	})
	if err != nil {
		return nil, orderUpdateError(err)
	}

	logRefundRequested(ctx, order)

	return order, nil
}

// CancelOrder cancels a pending or processing order owned by userID. A paid
// gateway order gets its refund request written in the same update.
func (s *orderService) CancelOrder(ctx context.Context, userID, id uuid.UUID, req *models.CancelOrderRequest) (*models.Order, error) {
	reason := utils.SanitizeText(req.Reason)

	order, err := s.orderRepo.UpdateOrder(ctx, id, func(o *models.Order) error {
		if o.UserID != userID {
			return repository.ErrNotFound
		}

		note := "Cancelled by customer"
		if reason != "" {
			note = reason
		}

		return cancelOrder(o, note, reason, s.engine.Now())
	})
	if err != nil {
		return nil, orderUpdateError(err)
	}

	logRefundRequested(ctx, order)

	return order, nil
}

// cancelOrder moves o to cancelled. A paid gateway order gets its refund
// request written in the same update.
func cancelOrder(o *models.Order, note, reason string, now time.Time) error {
	if !o.OrderStatus.Cancellable() {
		return &models.TransitionError{Field: "order status", From: string(o.OrderStatus), To: string(models.OrderStatusCancelled)}
	}

	if _, err := o.Apply(models.StatusChange{Order: models.OrderStatusCancelled, Note: note, At: now}); err != nil {
		return err
	}

	o.CancelReason = reason

	if o.IsPaid() && o.PaymentMethod.UsesGateway() && o.Refund == nil {
		o.Refund = &models.RefundRequest{
			Status:      models.RefundStatusRequested,
			Amount:      o.TotalAmount,
			Reason:      "order cancelled",
			RequestedAt: now,
			UpdatedAt:   now,
		}
	}

	return nil
}

func logRefundRequested(ctx context.Context, order *models.Order) {
	if order.Refund == nil || order.Refund.Status != models.RefundStatusRequested {
		return
	}

	metrics.RefundTransition(string(models.RefundStatusRequested))
	middleware.LoggerFromContext(ctx).Info("Refund requested",
		slog.String("orderId", order.ID.String()),
		slog.String("amount", order.Refund.Amount.String()))
}

func orderUpdateError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := errors.IsAppError(err); ok {
		return err
	}

	var transition *models.TransitionError

	switch {
	case stdErrors.As(err, &transition):
		return errors.InvalidTransitionError(transition.Error())
	case stdErrors.Is(err, repository.ErrNotFound):
		return errors.NotFoundError("Order not found")
	default:
		return errors.DatabaseError("Failed to update order").WithError(err)
	}
}
