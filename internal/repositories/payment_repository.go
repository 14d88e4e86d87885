package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
)

type PaymentRepository interface {
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) error
	GetIntentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error)
	ListIntentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.PaymentIntent, error)
	// UpdateIntentStatus never moves an intent out of verified.
	UpdateIntentStatus(ctx context.Context, id uuid.UUID, status models.IntentStatus, gatewayPaymentID, reason string) error
}

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepository {
	return &paymentRepository{DB: db}
}

const intentColumns = `id, order_id, user_id, provider, gateway_order_id, gateway_payment_id, amount, currency,
	attempt, status, receipt, failure_reason, created_at, updated_at`

func scanIntent(row rowScanner) (*models.PaymentIntent, error) {
	p := &models.PaymentIntent{}

	var (
		amount   int64
		currency string
	)

	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Provider, &p.GatewayOrderID, &p.GatewayPaymentID, &amount, &currency,
		&p.Attempt, &p.Status, &p.Receipt, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Amount = money.New(amount, currency)

	return p, nil
}

func (r *paymentRepository) CreateIntent(ctx context.Context, p *models.PaymentIntent) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO payment_intents (id, order_id, user_id, provider, gateway_order_id, amount, currency, attempt, status, receipt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.DB.QueryRowContext(dbCtx, query, p.ID, p.OrderID, p.UserID, p.Provider, p.GatewayOrderID,
		p.Amount.Amount, p.Amount.Currency, p.Attempt, p.Status, p.Receipt).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetIntentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	p, err := scanIntent(r.DB.QueryRowContext(dbCtx, `SELECT `+intentColumns+` FROM payment_intents WHERE gateway_order_id = $1`, gatewayOrderID))
	if err != nil {
		return nil, notFound(err)
	}

	return p, nil
}

func (r *paymentRepository) ListIntentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.PaymentIntent, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	rows, err := r.DB.QueryContext(dbCtx, `SELECT `+intentColumns+` FROM payment_intents WHERE order_id = $1 ORDER BY attempt`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment intents: %w", err)
	}
	defer rows.Close()

	intents := []*models.PaymentIntent{}

	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment intent: %w", err)
		}

		intents = append(intents, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment intents: %w", err)
	}

	return intents, nil
}

func (r *paymentRepository) UpdateIntentStatus(ctx context.Context, id uuid.UUID, status models.IntentStatus, gatewayPaymentID, reason string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE payment_intents
		SET status = $2, gateway_payment_id = COALESCE(NULLIF($3, ''), gateway_payment_id), failure_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status <> 'verified'`

	if _, err := r.DB.ExecContext(dbCtx, query, id, status, gatewayPaymentID, reason); err != nil {
		return fmt.Errorf("failed to update payment intent: %w", err)
	}

	return nil
}
