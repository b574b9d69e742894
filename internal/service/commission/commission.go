// Package commission computes the cashback split of a purchase.
//
// The split is fixed: buyer 50%, parent 25%, grandparent 12.5%, company 12.5%.
// All arithmetic stays in decimal; every persisted amount is rounded to two
// places half away from zero, and the rounding remainder is folded into the
// buyer share so the four amounts always sum to the rounded total.
package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rootzapp/rootz/internal/apperrors"
)

var (
	hundred = decimal.NewFromInt(100)

	ratioParent      = decimal.RequireFromString("0.25")
	ratioGrandparent = decimal.RequireFromString("0.125")
	ratioCompany     = decimal.RequireFromString("0.125")
)

// Commission is the four-way split of a purchase cashback.
// Total = Buyer + Parent + Grandparent + Company, exactly.
type Commission struct {
	Total       decimal.Decimal
	Buyer       decimal.Decimal
	Parent      decimal.Decimal
	Grandparent decimal.Decimal
	Company     decimal.Decimal
}

// ParseDiscount parses a shop discount like "8%" or "12.5" into a percentage.
// Anything outside (0, 100] is apperrors.ErrInvalidDiscount.
func ParseDiscount(discount string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(discount)
	trimmed = strings.TrimSuffix(trimmed, "%")
	trimmed = strings.TrimSpace(trimmed)

	percent, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("discount %q: %w", discount, apperrors.ErrInvalidDiscount)
	}

	if !percent.IsPositive() || percent.GreaterThan(hundred) {
		return decimal.Decimal{}, fmt.Errorf("discount %q out of range: %w", discount, apperrors.ErrInvalidDiscount)
	}

	return percent, nil
}

// Split computes the commission of a purchase of amount at a shop with the
// given discount string.
func Split(amount decimal.Decimal, discount string) (Commission, error) {
	percent, err := ParseDiscount(discount)
	if err != nil {
		return Commission{}, err
	}

	cashback := amount.Mul(percent).Div(hundred)
	total := cashback.Round(2)

	// Round the three minor shares, give the buyer whatever is left of the
	// rounded total. This pins the remainder to the largest share instead of
	// letting it drift.
	parent := cashback.Mul(ratioParent).Round(2)
	grandparent := cashback.Mul(ratioGrandparent).Round(2)
	company := cashback.Mul(ratioCompany).Round(2)
	buyer := total.Sub(parent).Sub(grandparent).Sub(company)

	return Commission{
		Total:       total,
		Buyer:       buyer,
		Parent:      parent,
		Grandparent: grandparent,
		Company:     company,
	}, nil
}
