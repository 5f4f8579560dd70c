package cart

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	// DefaultTaxRate applies when the ledger is built without WithTaxRate.
	DefaultTaxRate = decimal.NewFromFloat(0.1)

	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Totals is the pricing breakdown of the ledger. Amounts are whole currency units.
type Totals struct {
	Subtotal  int64 `json:"subtotal"`
	Tax       int64 `json:"tax"`
	Discount  int64 `json:"discount"`
	Total     int64 `json:"total"`
	ItemCount int   `json:"itemCount"`
}

// Payable is Total floored at zero. CalculateTotal never clamps; callers that
// charge money use Payable.
func (t Totals) Payable() int64 {
	if t.Total < 0 {
		return 0
	}
	return t.Total
}

// Summary is what listeners receive after every mutation.
type Summary struct {
	Items []LineItem `json:"items"`
	Totals
}

// Stats is a compact view used by badges and headers.
type Stats struct {
	ItemCount   int   `json:"itemCount"`
	UniqueItems int   `json:"uniqueItems"`
	Subtotal    int64 `json:"subtotal"`
	IsEmpty     bool  `json:"isEmpty"`
}

func subtotalOf(items []LineItem) int64 {
	return clampInt64(exactSubtotal(items))
}

// exactSubtotal sums in decimal so large carts cannot wrap.
func exactSubtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.lineTotal())
	}
	return sum
}

// clampInt64 saturates d at the int64 range instead of wrapping.
func clampInt64(d decimal.Decimal) int64 {
	switch {
	case d.GreaterThan(maxAmount):
		return math.MaxInt64
	case d.LessThan(minAmount):
		return math.MinInt64
	}
	return d.IntPart()
}

func itemCountOf(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// taxFor rounds half away from zero to whole units.
func taxFor(subtotal decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(0)
}

func computeTotals(items []LineItem, taxRate decimal.Decimal, discount int64) Totals {
	subtotal := exactSubtotal(items)
	tax := taxFor(subtotal, taxRate)
	return Totals{
		Subtotal:  clampInt64(subtotal),
		Tax:       clampInt64(tax),
		Discount:  discount,
		Total:     clampInt64(subtotal.Add(tax).Sub(decimal.NewFromInt(discount))),
		ItemCount: itemCountOf(items),
	}
}
