package market

import "github.com/shopspring/decimal"

// RoundQuantity rounds qty half away from zero to the given number of
// decimal places.
func RoundQuantity(qty decimal.Decimal, places int32) decimal.Decimal {
	return qty.Round(places)
}

// FloorQuantity truncates qty to the given number of decimal places.
func FloorQuantity(qty decimal.Decimal, places int32) decimal.Decimal {
	return qty.Truncate(places)
}

// FormatUSD renders a quote amount with two decimals.
func FormatUSD(v decimal.Decimal) string {
	return v.StringFixed(2)
}
