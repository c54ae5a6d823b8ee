package pricing

import "github.com/shopspring/decimal"

// 1 credit = $0.01.
var creditsPerDollar = decimal.NewFromInt(100)

// Credits converts a USD amount to an integer credit count, rounding half up.
func Credits(amount decimal.Decimal) int64 {
	return amount.Mul(creditsPerDollar).Round(0).IntPart()
}

// CreditsToUSD converts a credit count back to a USD amount.
func CreditsToUSD(credits int64) decimal.Decimal {
	return decimal.NewFromInt(credits).Div(creditsPerDollar)
}

// FormatUSD renders a USD amount as "$X.XX".
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
