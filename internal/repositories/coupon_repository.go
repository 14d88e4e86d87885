package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrCouponUsageLimit   = errors.New("coupon usage limit reached")
	ErrCouponPerUserLimit = errors.New("coupon per-user limit reached")
	ErrDuplicateCoupon    = errors.New("coupon code already exists")
)

type CouponRepository interface {
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListActiveCoupons(ctx context.Context, now time.Time) ([]*models.Coupon, error)
	CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error)
}

type couponRepository struct {
	DB *sql.DB
}

func NewCouponRepo(db *sql.DB) CouponRepository {
	return &couponRepository{DB: db}
}

const couponColumns = `id, code, description, discount_type, discount_value, currency, min_cart_value, max_discount,
	start_date, expiry_date, is_active, usage_limit, used_count, per_user_limit,
	applicable_categories, applicable_products, created_at, updated_at`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	c := &models.Coupon{}

	var (
		minCart      int64
		maxDiscount  sql.NullInt64
		usageLimit   sql.NullInt64
		perUserLimit sql.NullInt64
		categories   pq.StringArray
		products     pq.StringArray
	)

	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.Currency, &minCart, &maxDiscount,
		&c.StartDate, &c.ExpiryDate, &c.IsActive, &usageLimit, &c.UsedCount, &perUserLimit,
		&categories, &products, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.MinCartValue = money.New(minCart, c.Currency)

	if maxDiscount.Valid {
		m := money.New(maxDiscount.Int64, c.Currency)
		c.MaxDiscount = &m
	}

	c.UsageLimit = nullableInt(usageLimit)
	c.PerUserLimit = nullableInt(perUserLimit)

	if c.ApplicableCategories, err = parseUUIDs(categories); err != nil {
		return nil, err
	}

	if c.ApplicableProducts, err = parseUUIDs(products); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *couponRepository) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var maxDiscount sql.NullInt64
	if c.MaxDiscount != nil {
		maxDiscount = sql.NullInt64{Int64: c.MaxDiscount.Amount, Valid: true}
	}

	query := `
		INSERT INTO coupons (id, code, description, discount_type, discount_value, currency, min_cart_value, max_discount,
			start_date, expiry_date, is_active, usage_limit, used_count, per_user_limit,
			applicable_categories, applicable_products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $14, $15, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.DB.QueryRowContext(dbCtx, query,
		c.ID, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.Currency, c.MinCartValue.Amount, maxDiscount,
		c.StartDate, c.ExpiryDate, c.IsActive, nullInt(c.UsageLimit), nullInt(c.PerUserLimit),
		pq.Array(uuidStrings(c.ApplicableCategories)), pq.Array(uuidStrings(c.ApplicableProducts)),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCoupon
		}

		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.DB.QueryRowContext(dbCtx, query, models.NormalizeCouponCode(code)))
	if err != nil {
		return nil, notFound(err)
	}

	return c, nil
}

// ListActiveCoupons returns coupons that are switched on and inside their
// validity window at now.
func (r *couponRepository) ListActiveCoupons(ctx context.Context, now time.Time) ([]*models.Coupon, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE is_active = TRUE AND start_date <= $1 AND expiry_date >= $1
		ORDER BY code`

	rows, err := r.DB.QueryContext(dbCtx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []*models.Coupon{}

	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}

		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

func (r *couponRepository) CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2`

	if err := r.DB.QueryRowContext(dbCtx, query, couponID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count coupon redemptions: %w", err)
	}

	return count, nil
}

// redeemCoupon claims one use of c for the order inside tx. The conditional
// increment makes the global limit hold under concurrent checkouts; the
// per-user count is taken with the coupon row locked so two checkouts by the
// same user are serialised.
func redeemCoupon(ctx context.Context, tx *sql.Tx, c *models.Coupon, userID, orderID uuid.UUID) error {
	if c.PerUserLimit != nil {
		var locked uuid.UUID

		err := tx.QueryRowContext(ctx, `SELECT id FROM coupons WHERE id = $1 FOR UPDATE`, c.ID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to lock coupon: %w", err)
		}

		var used int

		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2`, c.ID, userID).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to count coupon redemptions: %w", err)
		}

		if used >= *c.PerUserLimit {
			return ErrCouponPerUserLimit
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read coupon update result: %w", err)
	} else if n == 0 {
		return ErrCouponUsageLimit
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO coupon_redemptions (coupon_id, user_id, order_id, created_at)
		VALUES ($1, $2, $3, NOW())`, c.ID, userID, orderID)
	if err != nil {
		return fmt.Errorf("failed to record coupon redemption: %w", err)
	}

	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}

	n := int(v.Int64)

	return &n
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(values))

	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", v, err)
		}

		ids[i] = id
	}

	return ids, nil
}
