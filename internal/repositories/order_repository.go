package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
)

type OrderRepository interface {
	// CreateOrder persists a new order. When coupon is non-nil one use of it
	// is redeemed in the same transaction.
	CreateOrder(ctx context.Context, order *models.Order, coupon *models.Coupon) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]*models.Order, int, error)
	// UpdateOrder locks the row, applies fn and writes the mutable fields back.
	// fn may return ErrNoChange to leave the row untouched.
	UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error)
	ListPendingRefunds(ctx context.Context, limit int) ([]*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, order_number, user_id, currency, items, shipping_address, billing_address,
	subtotal, shipping_charges, tax_amount, discount_amount, total_amount, coupon_code,
	payment_method, payment_status, order_status, status_history, payment_attempts,
	gateway_order_id, gateway_payment_id, refund, cancel_reason, version, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}

	var (
		itemsJSON, shippingJSON, billingJSON, historyJSON, refundJSON []byte
		subtotal, shipping, tax, discount, total                      int64
	)

	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Currency, &itemsJSON, &shippingJSON, &billingJSON,
		&subtotal, &shipping, &tax, &discount, &total, &o.CouponCode,
		&o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus, &historyJSON, &o.PaymentAttempts,
		&o.GatewayOrderID, &o.GatewayPaymentID, &refundJSON, &o.CancelReason, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Subtotal = money.New(subtotal, o.Currency)
	o.ShippingCharges = money.New(shipping, o.Currency)
	o.TaxAmount = money.New(tax, o.Currency)
	o.DiscountAmount = money.New(discount, o.Currency)
	o.TotalAmount = money.New(total, o.Currency)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}

	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal billing address: %w", err)
	}

	if err := json.Unmarshal(historyJSON, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
	}

	if len(refundJSON) > 0 {
		o.Refund = &models.RefundRequest{}
		if err := json.Unmarshal(refundJSON, o.Refund); err != nil {
			return nil, fmt.Errorf("failed to unmarshal refund: %w", err)
		}
	}

	return o, nil
}

// refundValue maps a missing refund to SQL NULL.
func refundValue(r *models.RefundRequest) (any, error) {
	if r == nil {
		return nil, nil
	}

	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refund: %w", err)
	}

	return b, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, o *models.Order, coupon *models.Coupon) error {
	dbCtx, cancel := utils.WithTxTimeout(ctx)
	defer cancel()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}

	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal status history: %w", err)
	}

	if o.Version == 0 {
		o.Version = 1
	}

	query := `
		INSERT INTO orders (id, order_number, user_id, currency, items, shipping_address, billing_address,
			subtotal, shipping_charges, tax_amount, discount_amount, total_amount, coupon_code,
			payment_method, payment_status, order_status, status_history, payment_attempts, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)`

	return withTx(dbCtx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(dbCtx, query,
			o.ID, o.OrderNumber, o.UserID, o.Currency, items, shipping, billing,
			o.Subtotal.Amount, o.ShippingCharges.Amount, o.TaxAmount.Amount, o.DiscountAmount.Amount, o.TotalAmount.Amount, o.CouponCode,
			o.PaymentMethod, o.PaymentStatus, o.OrderStatus, history, o.PaymentAttempts, o.Version, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if coupon != nil {
			return redeemCoupon(dbCtx, tx, coupon, o.UserID, o.ID)
		}

		return nil
	})
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	o, err := scanOrder(r.DB.QueryRowContext(dbCtx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}

	return o, nil
}

func (r *orderRepository) GetOrderByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	o, err := scanOrder(r.DB.QueryRowContext(dbCtx, `SELECT `+orderColumns+` FROM orders WHERE gateway_payment_id = $1`, gatewayPaymentID))
	if err != nil {
		return nil, notFound(err)
	}

	return o, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	orders, err := r.queryOrders(dbCtx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListPendingRefunds(ctx context.Context, limit int) ([]*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE refund->>'status' = 'requested' ORDER BY updated_at LIMIT $1`

	return r.queryOrders(dbCtx, query, limit)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error) {
	dbCtx, cancel := utils.WithTxTimeout(ctx)
	defer cancel()

	var updated *models.Order

	err := withTx(dbCtx, r.DB, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(dbCtx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return notFound(err)
		}

		if err := fn(o); err != nil {
			if errors.Is(err, ErrNoChange) {
				updated = o
				return nil
			}

			return err
		}

		history, err := json.Marshal(o.StatusHistory)
		if err != nil {
			return fmt.Errorf("failed to marshal status history: %w", err)
		}

		refund, err := refundValue(o.Refund)
		if err != nil {
			return err
		}

		o.Version++

		query := `
			UPDATE orders
			SET payment_status = $2, order_status = $3, status_history = $4, payment_attempts = $5,
				gateway_order_id = $6, gateway_payment_id = $7, refund = $8, cancel_reason = $9,
				version = $10, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`

		err = tx.QueryRowContext(dbCtx, query, o.ID, o.PaymentStatus, o.OrderStatus, history, o.PaymentAttempts,
			o.GatewayOrderID, o.GatewayPaymentID, refund, o.CancelReason, o.Version).Scan(&o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		updated = o

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
