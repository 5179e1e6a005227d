// internal/domain/currency.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal" // For precise monetary calculations

	"brokerage-ledger/internal/util"
)

// Currency is one of the fixed set of currencies an account can hold.
type Currency uint8

const (
	USD Currency = iota
	BTC
	ETH
	USDT
	USDC

	// NumCurrencies is the size of the closed currency set.
	NumCurrencies = 5
)

var currencyCodes = [NumCurrencies]string{"USD", "BTC", "ETH", "USDT", "USDC"}

// Currencies lists every supported currency in canonical order.
var Currencies = [NumCurrencies]Currency{USD, BTC, ETH, USDT, USDC}

// CryptoCurrencies lists the currencies that can be deposited and withdrawn.
var CryptoCurrencies = []Currency{BTC, ETH, USDT, USDC}

// ParseCurrency parses a currency code case-insensitively.
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	for i, known := range currencyCodes {
		if known == c {
			return Currency(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", util.ErrUnsupportedCurrency, code)
}

// String returns the upper-case currency code.
func (c Currency) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Currency(%d)", uint8(c))
	}
	return currencyCodes[c]
}

// Valid reports whether c is part of the supported set.
func (c Currency) Valid() bool { return c < NumCurrencies }

// IsCrypto reports whether c can be deposited or withdrawn.
func (c Currency) IsCrypto() bool { return c.Valid() && c != USD }

// Column returns the accounts table column that stores this currency.
func (c Currency) Column() string { return strings.ToLower(c.String()) }

func (c Currency) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", util.ErrUnsupportedCurrency, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the currency code.
func (c Currency) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", util.ErrUnsupportedCurrency, uint8(c))
	}
	return c.String(), nil
}

// Scan reads a currency code column.
func (c *Currency) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	}
	return fmt.Errorf("%w: cannot scan %T", util.ErrUnsupportedCurrency, src)
}

// Balances holds one amount per supported currency, indexed by Currency.
// The set of keys is fixed by construction.
type Balances [NumCurrencies]decimal.Decimal

// Get returns the balance for c.
func (b Balances) Get(c Currency) decimal.Decimal { return b[c] }

// With returns a copy of b with c set to amount.
func (b Balances) With(c Currency, amount decimal.Decimal) Balances {
	b[c] = amount
	return b
}

// Add returns a copy of b with delta added to c.
func (b Balances) Add(c Currency, delta decimal.Decimal) Balances {
	b[c] = b[c].Add(delta)
	return b
}

// HasNegative reports whether any balance is below zero, returning the first offender.
func (b Balances) HasNegative() (Currency, bool) {
	for _, c := range Currencies {
		if b[c].IsNegative() {
			return c, true
		}
	}
	return 0, false
}

// Equal reports whether every currency holds the same amount.
func (b Balances) Equal(o Balances) bool {
	for _, c := range Currencies {
		if !b[c].Equal(o[c]) {
			return false
		}
	}
	return true
}

// MarshalJSON renders balances as {"USD": "0", "BTC": "1.5", ...}.
func (b Balances) MarshalJSON() ([]byte, error) {
	m := make(map[string]decimal.Decimal, NumCurrencies)
	for _, c := range Currencies {
		m[c.String()] = b[c]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts an object keyed by currency code. Unknown codes are rejected,
// missing codes are left at zero.
func (b *Balances) UnmarshalJSON(data []byte) error {
	var m map[string]decimal.Decimal
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Balances
	for code, amount := range m {
		c, err := ParseCurrency(code)
		if err != nil {
			return err
		}
		out[c] = amount
	}
	*b = out
	return nil
}
