package pricing

import (
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/shopspring/decimal"
)

type TaxBasis string

const (
	TaxAfterDiscount  TaxBasis = "after_discount"
	TaxBeforeDiscount TaxBasis = "before_discount"
)

var basisPointsPerPercent = decimal.NewFromInt(100)

// ShippingPolicy prices delivery for a cart subtotal.
type ShippingPolicy interface {
	Charge(subtotal money.Money) money.Money
}

// TaxPolicy returns the unrounded tax, in minor units, for an unrounded
// taxable amount.
type TaxPolicy interface {
	Tax(taxable decimal.Decimal) decimal.Decimal
	Basis() TaxBasis
}

// FlatShipping charges Flat below FreeAbove and nothing at or above it.
// A zero FreeAbove disables free shipping.
type FlatShipping struct {
	FreeAbove int64
	Flat      int64
}

func (s FlatShipping) Charge(subtotal money.Money) money.Money {
	if subtotal.Amount <= 0 {
		return money.Zero(subtotal.Currency)
	}

	if s.FreeAbove > 0 && subtotal.Amount >= s.FreeAbove {
		return money.Zero(subtotal.Currency)
	}

	return money.New(s.Flat, subtotal.Currency)
}

type PercentTax struct {
	RateBasisPoints int64
	TaxBasis        TaxBasis
}

func (t PercentTax) Tax(taxable decimal.Decimal) decimal.Decimal {
	if !taxable.IsPositive() || t.RateBasisPoints <= 0 {
		return decimal.Zero
	}

	return taxable.Mul(decimal.NewFromInt(t.RateBasisPoints)).Div(basisPointsPerPercent).Div(basisPointsPerPercent)
}

func (t PercentTax) Basis() TaxBasis {
	if t.TaxBasis == "" {
		return TaxAfterDiscount
	}

	return t.TaxBasis
}

// PoliciesFromConfig builds the shipping and tax collaborators for an Engine.
func PoliciesFromConfig(cfg config.Pricing) (ShippingPolicy, TaxPolicy, error) {
	basis := TaxBasis(cfg.TaxBasis)

	switch basis {
	case "":
		basis = TaxAfterDiscount
	case TaxAfterDiscount, TaxBeforeDiscount:
	default:
		return nil, nil, fmt.Errorf("unknown tax basis %q", cfg.TaxBasis)
	}

	if cfg.TaxRateBasisPoints < 0 {
		return nil, nil, fmt.Errorf("tax rate cannot be negative: %d", cfg.TaxRateBasisPoints)
	}

	shipping := FlatShipping{FreeAbove: cfg.FreeShippingThreshold, Flat: cfg.FlatShipping}
	tax := PercentTax{RateBasisPoints: cfg.TaxRateBasisPoints, TaxBasis: basis}

	return shipping, tax, nil
}
