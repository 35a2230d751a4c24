package domain

import "github.com/shopspring/decimal"

// StudentDiscountFactor is applied to the total when the student discount is on.
var StudentDiscountFactor = decimal.RequireFromString("0.8")

// ComputeTotal sums price times quantity over items, applies the student
// discount when enabled and rounds to two decimal places.
func ComputeTotal(items []CatalogItem, discountEnabled bool) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromInt(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if discountEnabled {
		total = total.Mul(StudentDiscountFactor)
	}
	return total.Round(2)
}

// FormatTotal renders a total with exactly two decimals, e.g. "25.00".
func FormatTotal(total decimal.Decimal) string {
	return total.StringFixed(2)
}
