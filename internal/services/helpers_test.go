package service_test

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine() *pricing.Engine {
	return pricing.NewEngine(
		pricing.FlatShipping{FreeAbove: 50000, Flat: 4900},
		pricing.PercentTax{RateBasisPoints: 1800, TaxBasis: pricing.TaxAfterDiscount},
	).WithClock(func() time.Time { return fixedNow })
}

func newTestCoupon(code string, discountType models.DiscountType, value string) *models.Coupon {
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: decimal.RequireFromString(value),
		Currency:      "INR",
		MinCartValue:  money.Zero("INR"),
		StartDate:     fixedNow.AddDate(0, -1, 0),
		ExpiryDate:    fixedNow.AddDate(0, 1, 0),
		IsActive:      true,
	}
}

func newTestProduct(price int64, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Ceramic Mug",
		Price:         money.New(price, "INR"),
		StockQuantity: stock,
		SKU:           "MUG-001",
		Status:        models.ProductStatusActive,
	}
}

func newPendingOrder(userID uuid.UUID, method models.PaymentMethod) *models.Order {
	total := money.New(53100, "INR")

	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-01JTESTORDER",
		UserID:          userID,
		Currency:        "INR",
		Subtotal:        money.New(50000, "INR"),
		ShippingCharges: money.Zero("INR"),
		TaxAmount:       money.New(8100, "INR"),
		DiscountAmount:  money.New(5000, "INR"),
		TotalAmount:     total,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{{
			OrderStatus:   models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			Timestamp:     fixedNow,
			Note:          "Order placed",
		}},
		Version: 1,
	}
}

// applyTo stands in for the row lock of OrderRepository.UpdateOrder: the
// mutator runs against order and its result is returned as the stored row.
func applyTo(order *models.Order) func(context.Context, uuid.UUID, func(*models.Order) error) (*models.Order, error) {
	return func(_ context.Context, _ uuid.UUID, fn func(*models.Order) error) (*models.Order, error) {
		if err := fn(order); err != nil {
			if stdErrors.Is(err, repository.ErrNoChange) {
				return order, nil
			}

			return nil, err
		}

		order.Version++

		return order, nil
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)

	appErr, ok := appErrors.IsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}
