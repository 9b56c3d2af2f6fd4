// Package pricing computes the authoritative monetary breakdown of a cart.
// It is the only place totals are computed and rounded; other layers display
// its output and never recompute it.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DiscountMode selects how the discount value is interpreted.
type DiscountMode string

const (
	// DiscountModeNone applies no discount.
	DiscountModeNone DiscountMode = "NONE"
	// DiscountModePercent treats the value as a percentage of the subtotal.
	DiscountModePercent DiscountMode = "PERCENT"
	// DiscountModeFlat treats the value as a fixed amount.
	DiscountModeFlat DiscountMode = "FLAT"
)

// Discount describes the cart-level discount configuration.
type Discount struct {
	Mode  DiscountMode
	Value decimal.Decimal
}

// CartLine is one priced item in the cart. Immutable once priced.
type CartLine struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Input groups everything the calculator needs.
type Input struct {
	Currency     string
	Lines        []CartLine
	Discount     Discount
	TaxRate      decimal.Decimal
	DeliveryCost decimal.Decimal
}

// PricedOrder is the fully computed breakdown. Every field is rounded to
// 2 decimals; GrandTotal is recomputed from the rounded components so
// GrandTotal = Subtotal - DiscountAmount + TaxAmount + DeliveryCost holds
// exactly.
type PricedOrder struct {
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DeliveryCost   decimal.Decimal `json:"delivery_cost"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// ErrInvalidInput indicates the cart or its configuration violates an input
// constraint. Nothing is clamped silently.
var ErrInvalidInput = errors.New("pricing: invalid input")

var hundred = decimal.NewFromInt(100)

// round applies the engine-wide monetary rounding: 2 decimals, half up.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Calculate prices the cart. Each derived amount is rounded before the next
// step so no unrounded intermediate ever reaches a persisted field.
func Calculate(in Input) (PricedOrder, error) {
	if len(in.Lines) == 0 {
		return PricedOrder{}, fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	if in.Currency == "" {
		return PricedOrder{}, fmt.Errorf("%w: currency required", ErrInvalidInput)
	}
	if _, err := currency.ParseISO(in.Currency); err != nil {
		return PricedOrder{}, fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, in.Currency)
	}
	if in.TaxRate.IsNegative() {
		return PricedOrder{}, fmt.Errorf("%w: tax rate must be >= 0", ErrInvalidInput)
	}
	if in.DeliveryCost.IsNegative() {
		return PricedOrder{}, fmt.Errorf("%w: delivery cost must be >= 0", ErrInvalidInput)
	}

	subtotal := decimal.Zero
	for idx, line := range in.Lines {
		if line.Quantity < 1 {
			return PricedOrder{}, fmt.Errorf("%w: line %d quantity must be >= 1", ErrInvalidInput, idx)
		}
		if line.UnitPrice.IsNegative() {
			return PricedOrder{}, fmt.Errorf("%w: line %d unit price must be >= 0", ErrInvalidInput, idx)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}
	subtotal = round(subtotal)

	discountAmount, err := discountFor(in.Discount, subtotal)
	if err != nil {
		return PricedOrder{}, err
	}

	taxAmount := round(subtotal.Sub(discountAmount).Mul(in.TaxRate))
	deliveryCost := round(in.DeliveryCost)
	grandTotal := subtotal.Sub(discountAmount).Add(taxAmount).Add(deliveryCost)

	return PricedOrder{
		Currency:       in.Currency,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      taxAmount,
		DeliveryCost:   deliveryCost,
		GrandTotal:     grandTotal,
	}, nil
}

func discountFor(d Discount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch d.Mode {
	case DiscountModeNone, "":
		if !d.Value.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: discount value without mode", ErrInvalidInput)
		}
		return decimal.Zero, nil
	case DiscountModePercent:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%w: discount percent must be in [0,100]", ErrInvalidInput)
		}
		return round(subtotal.Mul(d.Value).Div(hundred)), nil
	case DiscountModeFlat:
		if d.Value.IsNegative() || d.Value.GreaterThan(subtotal) {
			return decimal.Zero, fmt.Errorf("%w: flat discount must be in [0,subtotal]", ErrInvalidInput)
		}
		return round(d.Value), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount mode %q", ErrInvalidInput, d.Mode)
	}
}
