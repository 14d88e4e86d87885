package models

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFlat    DiscountType = "flat"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount definition. For percent coupons DiscountValue holds
// percentage points; for flat coupons it holds minor units of Currency.
type Coupon struct {
	ID                   uuid.UUID       `json:"id"`
	Code                 string          `json:"code"`
	Description          string          `json:"description,omitempty"`
	DiscountType         DiscountType    `json:"discount_type"`
	DiscountValue        decimal.Decimal `json:"discount_value"`
	Currency             string          `json:"currency"`
	MinCartValue         money.Money     `json:"min_cart_value"`
	MaxDiscount          *money.Money    `json:"max_discount,omitempty"`
	StartDate            time.Time       `json:"start_date"`
	ExpiryDate           time.Time       `json:"expiry_date"`
	IsActive             bool            `json:"is_active"`
	UsageLimit           *int            `json:"usage_limit,omitempty"`
	UsedCount            int             `json:"used_count"`
	PerUserLimit         *int            `json:"per_user_limit,omitempty"`
	ApplicableCategories []uuid.UUID     `json:"applicable_categories,omitempty"`
	ApplicableProducts   []uuid.UUID     `json:"applicable_products,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NormalizeCouponCode makes codes case-insensitive by storing them upper-cased.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the definition itself, not its eligibility for a cart.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return errors.New("coupon code is required")
	}

	switch c.DiscountType {
	case DiscountTypePercent:
		if !c.DiscountValue.IsPositive() || c.DiscountValue.GreaterThan(hundred) {
			return errors.New("percent discount must be greater than 0 and at most 100")
		}
	case DiscountTypeFlat:
		if !c.DiscountValue.IsPositive() {
			return errors.New("flat discount must be greater than 0")
		}
	default:
		return errors.New("discount type must be percent or flat")
	}

	if c.MaxDiscount != nil && c.MaxDiscount.IsNegative() {
		return errors.New("max discount cannot be negative")
	}

	if !c.ExpiryDate.After(c.StartDate) {
		return errors.New("expiry date must be after start date")
	}

	if c.UsageLimit != nil && *c.UsageLimit < 1 {
		return errors.New("usage limit must be at least 1")
	}

	if c.PerUserLimit != nil && *c.PerUserLimit < 1 {
		return errors.New("per-user limit must be at least 1")
	}

	return nil
}

func (c *Coupon) Restricted() bool {
	return len(c.ApplicableCategories) > 0 || len(c.ApplicableProducts) > 0
}

// AppliesTo reports whether any of the given products or categories fall
// inside the coupon's restriction sets. Unrestricted coupons apply to all.
func (c *Coupon) AppliesTo(productIDs, categoryIDs []uuid.UUID) bool {
	if !c.Restricted() {
		return true
	}

	for _, id := range productIDs {
		if slices.Contains(c.ApplicableProducts, id) {
			return true
		}
	}

	for _, id := range categoryIDs {
		if slices.Contains(c.ApplicableCategories, id) {
			return true
		}
	}

	return false
}

type CreateCouponRequest struct {
	Code                 string      `json:"code" validate:"required,alphanum,min=3,max=32"`
	Description          string      `json:"description,omitempty" validate:"max=500"`
	DiscountType         string      `json:"discount_type" validate:"required,oneof=percent flat"`
	DiscountValue        string      `json:"discount_value" validate:"required,numeric"`
	Currency             string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	MinCartValue         int64       `json:"min_cart_value" validate:"gte=0"`
	MaxDiscount          *int64      `json:"max_discount,omitempty" validate:"omitempty,gte=0"`
	StartDate            time.Time   `json:"start_date" validate:"required"`
	ExpiryDate           time.Time   `json:"expiry_date" validate:"required,gtfield=StartDate"`
	UsageLimit           *int        `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	PerUserLimit         *int        `json:"per_user_limit,omitempty" validate:"omitempty,min=1"`
	ApplicableCategories []uuid.UUID `json:"applicable_categories,omitempty"`
	ApplicableProducts   []uuid.UUID `json:"applicable_products,omitempty"`
}

type ValidateCouponRequest struct {
	Code      string `json:"code" validate:"required,max=32"`
	CartTotal int64  `json:"cartTotal" validate:"gte=0"`
}

type ValidateCouponResponse struct {
	Code           string      `json:"code"`
	DiscountAmount money.Money `json:"discountAmount"`
	PayableAmount  money.Money `json:"payableAmount"`
}

type AvailableCouponsResponse struct {
	Best     *ValidateCouponResponse  `json:"best,omitempty"`
	Eligible []ValidateCouponResponse `json:"eligible"`
}
