// internal/rates/table.go
package rates

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/internal/util"
)

// Table is an immutable snapshot of USD rates, one per currency. USD is always 1.
// Consumers take one Table per operation and never re-read mid-computation.
type Table struct {
	rates     [domain.NumCurrencies]decimal.Decimal
	updatedAt time.Time
	source    string
}

// NewTable builds a snapshot from per-currency USD rates. Every crypto currency
// must have a positive rate; a USD entry, if present, must be 1.
func NewTable(usdRates map[domain.Currency]decimal.Decimal, source string, updatedAt time.Time) (*Table, error) {
	t := &Table{updatedAt: updatedAt.UTC(), source: source}
	t.rates[domain.USD] = decimal.NewFromInt(1)
	for c, r := range usdRates {
		if !c.Valid() {
			return nil, fmt.Errorf("rate table: %w", util.ErrUnsupportedCurrency)
		}
		if c == domain.USD {
			if !r.Equal(decimal.NewFromInt(1)) {
				return nil, fmt.Errorf("rate table: USD rate must be 1, got %s: %w", r, util.ErrInvalidInput)
			}
			continue
		}
		t.rates[c] = r
	}
	for _, c := range domain.CryptoCurrencies {
		if !t.rates[c].IsPositive() {
			return nil, fmt.Errorf("rate table: missing or non-positive %s rate: %w", c, util.ErrInvalidInput)
		}
	}
	return t, nil
}

// Static returns the built-in fallback table used until the first refresh succeeds.
func Static() *Table {
	t, _ := NewTable(map[domain.Currency]decimal.Decimal{
		domain.BTC:  decimal.NewFromInt(45000),
		domain.ETH:  decimal.NewFromInt(2500),
		domain.USDT: decimal.NewFromInt(1),
		domain.USDC: decimal.NewFromInt(1),
	}, "static", time.Time{})
	return t
}

// Rate returns the USD value of one unit of c.
func (t *Table) Rate(c domain.Currency) decimal.Decimal { return t.rates[c] }

func (t *Table) UpdatedAt() time.Time { return t.updatedAt }

func (t *Table) Source() string { return t.source }

// Map returns the rates keyed by currency.
func (t *Table) Map() map[domain.Currency]decimal.Decimal {
	m := make(map[domain.Currency]decimal.Decimal, domain.NumCurrencies)
	for _, c := range domain.Currencies {
		m[c] = t.rates[c]
	}
	return m
}

type tableJSON struct {
	Rates     map[domain.Currency]decimal.Decimal `json:"rates"`
	UpdatedAt time.Time                           `json:"updated_at"`
	Source    string                              `json:"source"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{Rates: t.Map(), UpdatedAt: t.updatedAt, Source: t.source})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewTable(raw.Rates, raw.Source, raw.UpdatedAt)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
