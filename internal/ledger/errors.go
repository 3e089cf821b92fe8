package ledger

import (
	"errors"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("ledger item not found")
	ErrAlreadyProcessed  = errors.New("ledger item already processed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidCommand    = errors.New("invalid ledger command")
)

// NotFoundError is returned when an approve or reject targets an unknown id.
type NotFoundError struct {
	Kind domain.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("item %s not found", e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyProcessedError is returned when the target is no longer pending.
type AlreadyProcessedError struct {
	Kind   domain.Kind
	ID     string
	Status domain.Status
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("%s %s is already %s", e.Kind, e.ID, e.Status)
}

func (e *AlreadyProcessedError) Unwrap() error { return ErrAlreadyProcessed }

// InsufficientFundsError is returned when a debit would drive a balance
// below zero and overdraft is not allowed.
type InsufficientFundsError struct {
	UserID    string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %s: balance %s, requested %s",
		e.UserID, domain.FormatAmount(e.Balance), domain.FormatAmount(e.Requested))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// ValidationError reports a malformed command.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCommand }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
