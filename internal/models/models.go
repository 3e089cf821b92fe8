package models

import (
	"time"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// AmountRequest is the body of deposit and withdrawal requests. Amounts
// are accepted as JSON numbers or decimal strings.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"amount"`
}

type TransferRequest struct {
	ReceiverID string          `json:"receiverId" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"amount"`
	Type       string          `json:"type" validate:"required,oneof=local international intl"`
}

type RecordRequest struct {
	UserID string          `json:"userId" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"amount"`
	Action string          `json:"action" validate:"required,oneof=deposit withdrawal"`
}

// ReviewRequest is the optional body of approve and reject calls.
type ReviewRequest struct {
	Kind string `json:"kind" validate:"omitempty,oneof=deposit withdrawal transfer"`
}

type WalletResponse struct {
	UserID             string               `json:"userId"`
	Balance            decimal.Decimal      `json:"balance"`
	PendingDeposits    []ledger.FundRequest `json:"pendingDeposits"`
	PendingWithdrawals []ledger.FundRequest `json:"pendingWithdrawals"`
	Stats              ledger.UserStats     `json:"stats"`
}

type TransactionsResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
}

type PendingResponse struct {
	Deposits    []ledger.FundRequest `json:"deposits"`
	Withdrawals []ledger.FundRequest `json:"withdrawals"`
	Transfers   []ledger.Transaction `json:"transfers"`
	Stats       ledger.PendingStats  `json:"stats"`
}

type CommissionsResponse struct {
	Commissions []ledger.CommissionEntry `json:"commissions"`
	Count       int                      `json:"count"`
}
