// Package pricing computes cart totals: coupon eligibility and discount,
// shipping, tax and the payable total. Discount and tax are carried exactly and
// the total is rounded half-up once at the end.
package pricing

import (
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/shopspring/decimal"
)

// CouponSelection is a coupon the caller has already looked up, with the
// user's prior redemptions of it.
type CouponSelection struct {
	Coupon    *models.Coupon
	UserUsage int
}

type Result struct {
	Subtotal        money.Money
	ShippingCharges money.Money
	TaxAmount       money.Money
	DiscountAmount  money.Money
	TotalAmount     money.Money
	CouponCode      string
	TaxBasis        TaxBasis
}

type Engine struct {
	shipping ShippingPolicy
	tax      TaxPolicy
	now      func() time.Time
}

func NewEngine(shipping ShippingPolicy, tax TaxPolicy) *Engine {
	return &Engine{
		shipping: shipping,
		tax:      tax,
		now:      time.Now,
	}
}

// WithClock replaces the engine's time source. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now

	return e
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Price computes the totals for cart. A non-nil selection that fails
// validation returns its coupon rejection and no result.
func (e *Engine) Price(cart *models.Cart, selection *CouponSelection) (*Result, error) {
	subtotal := cart.TotalAmount()

	if selection != nil && selection.Coupon != nil && selection.Coupon.Currency != "" &&
		selection.Coupon.Currency != subtotal.Currency {
		return nil, errors.CurrencyMismatchError("Coupon currency does not match the cart")
	}

	result := &Result{
		Subtotal:        subtotal,
		ShippingCharges: e.shipping.Charge(subtotal),
		DiscountAmount:  money.Zero(subtotal.Currency),
		TaxBasis:        e.tax.Basis(),
	}

	discount := decimal.Zero

	if selection != nil && selection.Coupon != nil {
		_, err := ValidateCoupon(selection.Coupon, CouponInput{
			CartTotal:   subtotal,
			ProductIDs:  cart.ProductIDs(),
			CategoryIDs: cart.CategoryIDs(),
			Now:         e.now(),
		}, selection.UserUsage)
		if err != nil {
			return nil, err
		}

		discount = ExactDiscount(selection.Coupon, subtotal)
		result.CouponCode = selection.Coupon.Code
	}

	taxable := subtotal.Decimal()
	if result.TaxBasis == TaxAfterDiscount {
		taxable = decimal.Max(taxable.Sub(discount), decimal.Zero)
	}

	tax := e.tax.Tax(taxable)

	// Discount and tax are shown rounded; the total is rounded once from the
	// exact values, so it can differ from the shown parts by one minor unit.
	result.DiscountAmount = money.FromDecimal(discount, subtotal.Currency)
	result.TaxAmount = money.FromDecimal(tax, subtotal.Currency)

	total := subtotal.Decimal().Add(result.ShippingCharges.Decimal()).Add(tax).Sub(discount)
	result.TotalAmount = money.FromDecimal(total, subtotal.Currency).FloorZero()

	return result, nil
}
