// internal/valuation/valuation.go
package valuation

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/rates"
)

// Line is the USD value of one currency holding.
type Line struct {
	Currency domain.Currency `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Rate     decimal.Decimal `json:"rate"`
	USDValue decimal.Decimal `json:"usd_value"`
}

// TotalValue returns Σ balances[c] * rate(c) over every currency.
func TotalValue(balances domain.Balances, table *rates.Table) decimal.Decimal {
	total := decimal.Zero
	for _, c := range domain.Currencies {
		total = total.Add(balances.Get(c).Mul(table.Rate(c)))
	}
	return total
}

// Breakdown returns one line per currency in canonical order.
func Breakdown(balances domain.Balances, table *rates.Table) []Line {
	lines := make([]Line, 0, domain.NumCurrencies)
	for _, c := range domain.Currencies {
		rate := table.Rate(c)
		lines = append(lines, Line{
			Currency: c,
			Amount:   balances.Get(c),
			Rate:     rate,
			USDValue: balances.Get(c).Mul(rate),
		})
	}
	return lines
}

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// FormatUSD renders a USD amount for display, e.g. "$1,234.57". Sub-cent
// precision is rounded half away from zero.
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2)
	if cents.LessThanOrEqual(minCents) || cents.GreaterThan(maxCents) {
		return formatWideUSD(amount.Round(2))
	}
	return money.New(cents.IntPart(), money.USD).Display()
}

// formatWideUSD renders amounts whose cents overflow int64 in the same layout
// go-money uses.
func formatWideUSD(amount decimal.Decimal) string {
	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(2), ".")
	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
