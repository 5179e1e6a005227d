// internal/domain/policy.go
package domain

import "github.com/shopspring/decimal"

// NetworkPolicy holds the deposit and withdrawal parameters of one crypto currency.
type NetworkPolicy struct {
	Currency          Currency        `json:"currency"`
	Network           string          `json:"network"`
	Confirmations     int             `json:"confirmations"`
	MinimumDeposit    decimal.Decimal `json:"minimum_deposit"`
	MinimumWithdrawal decimal.Decimal `json:"minimum_withdrawal"`
	NetworkFee        decimal.Decimal `json:"network_fee"`
}

// Policies is the fixed per-currency policy table. USD has no entry.
var Policies = map[Currency]NetworkPolicy{
	BTC: {
		Currency:          BTC,
		Network:           "Bitcoin",
		Confirmations:     3,
		MinimumDeposit:    decimal.RequireFromString("0.001"),
		MinimumWithdrawal: decimal.RequireFromString("0.001"),
		NetworkFee:        decimal.RequireFromString("0.0005"),
	},
	ETH: {
		Currency:          ETH,
		Network:           "Ethereum (ERC20)",
		Confirmations:     12,
		MinimumDeposit:    decimal.RequireFromString("0.01"),
		MinimumWithdrawal: decimal.RequireFromString("0.01"),
		NetworkFee:        decimal.RequireFromString("0.005"),
	},
	USDT: {
		Currency:          USDT,
		Network:           "TRON (TRC20)",
		Confirmations:     19,
		MinimumDeposit:    decimal.NewFromInt(10),
		MinimumWithdrawal: decimal.NewFromInt(10),
		NetworkFee:        decimal.NewFromInt(1),
	},
	USDC: {
		Currency:          USDC,
		Network:           "TRON (TRC20)",
		Confirmations:     19,
		MinimumDeposit:    decimal.NewFromInt(10),
		MinimumWithdrawal: decimal.NewFromInt(10),
		NetworkFee:        decimal.NewFromInt(1),
	},
}

// PolicyFor returns the policy of a crypto currency.
func PolicyFor(c Currency) (NetworkPolicy, bool) {
	p, ok := Policies[c]
	return p, ok
}
