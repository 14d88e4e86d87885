package repository_test

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumnNames = []string{
	"id", "order_number", "user_id", "currency", "items", "shipping_address", "billing_address",
	"subtotal", "shipping_charges", "tax_amount", "discount_amount", "total_amount", "coupon_code",
	"payment_method", "payment_status", "order_status", "status_history", "payment_attempts",
	"gateway_order_id", "gateway_payment_id", "refund", "cancel_reason", "version", "created_at", "updated_at",
}

func setupOrderRepoTest(t *testing.T) (repository.OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	return repository.NewOrderRepo(db), mock
}

func sampleOrder() *models.Order {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	userID := uuid.New()

	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-01JNEXAMPLE",
		UserID:      userID,
		Currency:    "INR",
		Items: []models.OrderItem{{
			ProductID:    uuid.New(),
			Name:         "Mug",
			UnitPrice:    money.New(25000, "INR"),
			Quantity:     2,
			LineSubtotal: money.New(50000, "INR"),
		}},
		ShippingAddress: models.Address{ID: uuid.New(), UserID: userID, Name: "A", Line1: "1 Main", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
		Subtotal:        money.New(50000, "INR"),
		ShippingCharges: money.New(0, "INR"),
		TaxAmount:       money.New(8100, "INR"),
		DiscountAmount:  money.New(5000, "INR"),
		TotalAmount:     money.New(53100, "INR"),
		CouponCode:      "SAVE10",
		PaymentMethod:   models.PaymentMethodRazorpay,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		StatusHistory: []models.StatusHistoryEntry{{
			OrderStatus: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending, Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func orderRow(t *testing.T, o *models.Order) *sqlmock.Rows {
	t.Helper()

	marshal := func(v any) []byte {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		return b
	}

	var refund any
	if o.Refund != nil {
		refund = marshal(o.Refund)
	}

	return sqlmock.NewRows(orderColumnNames).AddRow(
		o.ID.String(), o.OrderNumber, o.UserID.String(), o.Currency, marshal(o.Items), marshal(o.ShippingAddress), marshal(o.BillingAddress),
		o.Subtotal.Amount, o.ShippingCharges.Amount, o.TaxAmount.Amount, o.DiscountAmount.Amount, o.TotalAmount.Amount, o.CouponCode,
		string(o.PaymentMethod), string(o.PaymentStatus), string(o.OrderStatus), marshal(o.StatusHistory), o.PaymentAttempts,
		o.GatewayOrderID, o.GatewayPaymentID, refund, o.CancelReason, o.Version, o.CreatedAt, o.UpdatedAt,
	)
}

func TestCreateOrder(t *testing.T) {
	insertSQL := regexp.QuoteMeta(`INSERT INTO orders (id, order_number, user_id`)
	redeemSQL := regexp.QuoteMeta(`UPDATE coupons SET used_count = used_count + 1`)
	redemptionSQL := regexp.QuoteMeta(`INSERT INTO coupon_redemptions (coupon_id, user_id, order_id, created_at)`)
	lockCouponSQL := regexp.QuoteMeta(`SELECT id FROM coupons WHERE id = $1 FOR UPDATE`)

	t.Run("Success - Order without coupon", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Act
		err := repo.CreateOrder(t.Context(), order, nil)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1, order.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Coupon redeemed in the same transaction", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		coupon := &models.Coupon{ID: uuid.New(), Code: "SAVE10"}

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(redeemSQL).WithArgs(coupon.ID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(redemptionSQL).WithArgs(coupon.ID, order.UserID, order.ID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Act
		err := repo.CreateOrder(t.Context(), order, coupon)

		// Assert
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Exhausted coupon rolls the order back", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		coupon := &models.Coupon{ID: uuid.New(), Code: "SAVE10"}

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(redeemSQL).WithArgs(coupon.ID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		// Act
		err := repo.CreateOrder(t.Context(), order, coupon)

		// Assert
		assert.ErrorIs(t, err, repository.ErrCouponUsageLimit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Per-user limit checked inside the transaction", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		limit := 1
		coupon := &models.Coupon{ID: uuid.New(), Code: "ONCE", PerUserLimit: &limit}

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(lockCouponSQL).WithArgs(coupon.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(coupon.ID))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM coupon_redemptions`)).
			WithArgs(coupon.ID, order.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		// Act
		err := repo.CreateOrder(t.Context(), order, coupon)

		// Assert
		assert.ErrorIs(t, err, repository.ErrCouponPerUserLimit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - Per-user count taken under the coupon row lock", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		limit := 2
		coupon := &models.Coupon{ID: uuid.New(), Code: "TWICE", PerUserLimit: &limit}

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(lockCouponSQL).WithArgs(coupon.ID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(coupon.ID))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM coupon_redemptions`)).
			WithArgs(coupon.ID, order.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(redeemSQL).WithArgs(coupon.ID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(redemptionSQL).WithArgs(coupon.ID, order.UserID, order.ID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Act
		err := repo.CreateOrder(t.Context(), order, coupon)

		// Assert
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Coupon deleted before checkout", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		limit := 1
		coupon := &models.Coupon{ID: uuid.New(), Code: "GONE", PerUserLimit: &limit}

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(lockCouponSQL).WithArgs(coupon.ID).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		// Act
		err := repo.CreateOrder(t.Context(), order, coupon)

		// Assert
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Insert error", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		dbErr := errors.New("duplicate order number")

		mock.ExpectBegin()
		mock.ExpectExec(insertSQL).WillReturnError(dbErr)
		mock.ExpectRollback()

		// Act
		err := repo.CreateOrder(t.Context(), sampleOrder(), nil)

		// Assert
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOrderByID(t *testing.T) {
	selectSQL := regexp.QuoteMeta(`FROM orders WHERE id = $1`)

	t.Run("Success - Order found", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		order.Version = 3

		mock.ExpectQuery(selectSQL).WithArgs(order.ID).WillReturnRows(orderRow(t, order))

		// Act
		got, err := repo.GetOrderByID(t.Context(), order.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
		assert.Equal(t, money.New(53100, "INR"), got.TotalAmount)
		assert.Equal(t, order.Items, got.Items)
		assert.Equal(t, 3, got.Version)
		assert.Nil(t, got.Refund)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Not found", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		id := uuid.New()

		mock.ExpectQuery(selectSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows(orderColumnNames))

		// Act
		got, err := repo.GetOrderByID(t.Context(), id)

		// Assert
		assert.Nil(t, got)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUpdateOrder(t *testing.T) {
	lockSQL := regexp.QuoteMeta(`FROM orders WHERE id = $1 FOR UPDATE`)
	updateSQL := regexp.QuoteMeta(`UPDATE orders`)

	t.Run("Success - Mutation is written back under the row lock", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		order.Version = 1
		updatedAt := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(order.ID).WillReturnRows(orderRow(t, order))
		mock.ExpectQuery(updateSQL).
			WithArgs(order.ID, models.PaymentStatusCompleted, models.OrderStatusProcessing, sqlmock.AnyArg(), 0,
				"", "pay_1", nil, "", 2).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
		mock.ExpectCommit()

		// Act
		got, err := repo.UpdateOrder(t.Context(), order.ID, func(o *models.Order) error {
			o.GatewayPaymentID = "pay_1"
			_, err := o.Apply(models.StatusChange{Order: models.OrderStatusProcessing, Payment: models.PaymentStatusCompleted})

			return err
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
		assert.Equal(t, models.OrderStatusProcessing, got.OrderStatus)
		assert.Len(t, got.StatusHistory, 2)
		assert.Equal(t, 2, got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - ErrNoChange skips the write", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		order.Version = 4

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(order.ID).WillReturnRows(orderRow(t, order))
		mock.ExpectCommit()

		// Act
		got, err := repo.UpdateOrder(t.Context(), order.ID, func(*models.Order) error {
			return repository.ErrNoChange
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 4, got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Mutator error rolls back", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		order := sampleOrder()
		order.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(order.ID).WillReturnRows(orderRow(t, order))
		mock.ExpectRollback()

		// Act
		got, err := repo.UpdateOrder(t.Context(), order.ID, func(o *models.Order) error {
			_, err := o.Apply(models.StatusChange{Order: models.OrderStatusDelivered})

			return err
		})

		// Assert
		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Missing order", func(t *testing.T) {
		// Arrange
		repo, mock := setupOrderRepoTest(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows(orderColumnNames))
		mock.ExpectRollback()

		// Act
		_, err := repo.UpdateOrder(t.Context(), id, func(*models.Order) error { return nil })

		// Assert
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestListPendingRefunds(t *testing.T) {
	// Arrange
	repo, mock := setupOrderRepoTest(t)
	order := sampleOrder()
	order.PaymentStatus = models.PaymentStatusCompleted
	order.OrderStatus = models.OrderStatusCancelled
	order.Refund = &models.RefundRequest{Status: models.RefundStatusRequested, Amount: order.TotalAmount}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE refund->>'status' = 'requested'`)).
		WithArgs(10).
		WillReturnRows(orderRow(t, order))

	// Act
	orders, err := repo.ListPendingRefunds(t.Context(), 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].Refund)
	assert.Equal(t, models.RefundStatusRequested, orders[0].Refund.Status)
	assert.Equal(t, int64(53100), orders[0].Refund.Amount.Amount)
}

func TestListOrdersByUser(t *testing.T) {
	// Arrange
	repo, mock := setupOrderRepoTest(t)
	order := sampleOrder()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE user_id = $1`)).
		WithArgs(order.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT $2 OFFSET $3`)).
		WithArgs(order.UserID, 10, 10).
		WillReturnRows(orderRow(t, order))

	// Act
	orders, total, err := repo.ListOrdersByUser(t.Context(), order.UserID, 2, 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Len(t, orders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
