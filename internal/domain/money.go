package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountScale is the number of fractional digits accepted on input.
const MaxAmountScale = 6

var (
	ErrAmountRequired    = errors.New("amount is required")
	ErrAmountNotPositive = errors.New("amount must be greater than 0")
	ErrAmountPrecision   = fmt.Errorf("amount must have at most %d decimal places", MaxAmountScale)
)

var (
	rateFundMovement = decimal.RequireFromString("0.02")
	rateLocal        = decimal.RequireFromString("0.01")
	rateIntl         = decimal.RequireFromString("0.05")
)

// ParseAmount converts user-entered decimal text into a positive amount.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, ErrAmountRequired
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is strictly positive and not finer than micros.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrAmountNotPositive
	}
	if !d.Equal(d.Truncate(MaxAmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}

// CommissionRate returns the fee rate for a transaction type.
// Deposits and withdrawals are flat 2%, local transfers 1% and
// international transfers 5%.
func CommissionRate(t TxnType) decimal.Decimal {
	switch {
	case t == TxTypeDeposit || t == TxTypeWithdrawal:
		return rateFundMovement
	case t.IsInternational():
		return rateIntl
	default:
		return rateLocal
	}
}

// Commission computes the commission booked for an approved amount.
func Commission(amount decimal.Decimal, t TxnType) decimal.Decimal {
	return amount.Mul(CommissionRate(t))
}

// FormatAmount renders an amount with two fixed decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
