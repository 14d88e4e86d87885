package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponInput is the cart-side context a coupon is checked against.
type CouponInput struct {
	CartTotal   money.Money
	ProductIDs  []uuid.UUID
	CategoryIDs []uuid.UUID
	Now         time.Time
}

type CouponResult struct {
	Coupon         *models.Coupon
	DiscountAmount money.Money
	PayableAmount  money.Money
}

// ValidateCoupon runs the eligibility checks in a fixed order and returns the
// first failure, then computes the discount. userUsage is how many times the
// requesting user has already redeemed this coupon.
func ValidateCoupon(c *models.Coupon, in CouponInput, userUsage int) (*CouponResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !c.IsActive {
		return nil, errors.CouponRejected(errors.ErrCodeCouponInactive, "This coupon is no longer active")
	}

	if now.Before(c.StartDate) {
		return nil, errors.CouponRejected(errors.ErrCodeCouponNotStarted, "This coupon is not valid yet")
	}

	if now.After(c.ExpiryDate) {
		return nil, errors.CouponRejected(errors.ErrCodeCouponExpired, "This coupon has expired")
	}

	cmp, err := in.CartTotal.Cmp(c.MinCartValue)
	if err != nil {
		return nil, errors.CurrencyMismatchError("Coupon currency does not match the cart").WithError(err)
	}

	if cmp < 0 {
		return nil, errors.CouponRejected(errors.ErrCodeCouponMinCartValue,
			fmt.Sprintf("Minimum cart value of %s required", c.MinCartValue))
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, errors.CouponRejected(errors.ErrCodeCouponUsageLimit, "This coupon has reached its usage limit")
	}

	if c.PerUserLimit != nil && userUsage >= *c.PerUserLimit {
		return nil, errors.CouponRejected(errors.ErrCodeCouponPerUserLimit, "You have already used this coupon the maximum number of times")
	}

	if !c.AppliesTo(in.ProductIDs, in.CategoryIDs) {
		return nil, errors.CouponRejected(errors.ErrCodeCouponNotApplicable, "This coupon does not apply to the items in your cart")
	}

	discount := Discount(c, in.CartTotal)

	payable, err := in.CartTotal.Sub(discount)
	if err != nil {
		return nil, errors.CurrencyMismatchError("Coupon currency does not match the cart").WithError(err)
	}

	return &CouponResult{
		Coupon:         c,
		DiscountAmount: discount,
		PayableAmount:  payable.FloorZero(),
	}, nil
}

// Discount computes the discount for total without eligibility checks,
// rounded half-up to the minor unit.
func Discount(c *models.Coupon, total money.Money) money.Money {
	return money.FromDecimal(ExactDiscount(c, total), total.Currency)
}

// ExactDiscount is Discount before rounding. The percent path is capped at
// MaxDiscount and the result never exceeds total.
func ExactDiscount(c *models.Coupon, total money.Money) decimal.Decimal {
	if total.Amount <= 0 {
		return decimal.Zero
	}

	var exact = c.DiscountValue

	if c.DiscountType == models.DiscountTypePercent {
		exact = total.Percent(c.DiscountValue)
	}

	if c.MaxDiscount != nil && exact.GreaterThan(c.MaxDiscount.Decimal()) {
		exact = c.MaxDiscount.Decimal()
	}

	if exact.GreaterThan(total.Decimal()) {
		exact = total.Decimal()
	}

	if exact.IsNegative() {
		return decimal.Zero
	}

	return exact
}

// BestCoupon validates every candidate and orders the eligible ones by
// discount descending, then expiry ascending, then code. usage returns the
// caller's prior redemptions of a coupon.
func BestCoupon(candidates []*models.Coupon, in CouponInput, usage func(*models.Coupon) int) (*CouponResult, []CouponResult) {
	eligible := make([]CouponResult, 0, len(candidates))

	for _, c := range candidates {
		used := 0
		if usage != nil {
			used = usage(c)
		}

		result, err := ValidateCoupon(c, in, used)
		if err != nil {
			continue
		}

		eligible = append(eligible, *result)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]

		if a.DiscountAmount.Amount != b.DiscountAmount.Amount {
			return a.DiscountAmount.Amount > b.DiscountAmount.Amount
		}

		if !a.Coupon.ExpiryDate.Equal(b.Coupon.ExpiryDate) {
			return a.Coupon.ExpiryDate.Before(b.Coupon.ExpiryDate)
		}

		return a.Coupon.Code < b.Coupon.Code
	})

	if len(eligible) == 0 {
		return nil, eligible
	}

	best := eligible[0]

	return &best, eligible
}
