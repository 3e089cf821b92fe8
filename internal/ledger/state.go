// Package ledger holds the wallet state model: balances, fund requests,
// the transaction log and the commission book, plus the pure transition
// function that moves them between states.
package ledger

import (
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// FundRequest is a deposit or withdrawal awaiting admin review.
type FundRequest struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Status    domain.Status   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Transaction is one logged money movement. A nil From is the system
// source of a deposit; a nil To is the sink of a withdrawal.
type Transaction struct {
	ID        string          `json:"id"`
	From      *string         `json:"from"`
	To        *string         `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Type      domain.TxnType  `json:"type"`
	Action    domain.Action   `json:"action,omitempty"`
	Status    domain.Status   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Kind reports which approval queue the transaction belongs to.
func (t Transaction) Kind() domain.Kind {
	return domain.KindForAction(t.Action)
}

// Touches reports whether userID is either side of the movement.
func (t Transaction) Touches(userID string) bool {
	return (t.From != nil && *t.From == userID) || (t.To != nil && *t.To == userID)
}

// CommissionEntry is a fee booked when a transaction is approved.
// TxnID points at the originating request or transaction and is not
// guaranteed to be unique across the whole state.
type CommissionEntry struct {
	TxnID  string          `json:"txnId"`
	Amount decimal.Decimal `json:"amount"`
	Type   domain.TxnType  `json:"type"`
}

// Wallet owns balances and the deposit/withdrawal request queues.
// Requests are never removed; approved and rejected ones stay for history.
type Wallet struct {
	Balances           map[string]decimal.Decimal `json:"balances"`
	PendingDeposits    []FundRequest              `json:"pendingDeposits"`
	PendingWithdrawals []FundRequest              `json:"pendingWithdrawals"`
}

// TransactionLog is the append-only list of transactions.
type TransactionLog struct {
	Txns []Transaction `json:"txns"`
}

// CommissionBook accumulates commission entries.
type CommissionBook struct {
	Entries []CommissionEntry `json:"commissions"`
}

// State is the whole ledger tree. It is persisted and restored as one unit.
type State struct {
	Wallet      Wallet         `json:"wallet"`
	Log         TransactionLog `json:"txns"`
	Commissions CommissionBook `json:"commissions"`
}

// NewState returns an empty state with initialized collections.
func NewState() State {
	return State{
		Wallet: Wallet{
			Balances:           map[string]decimal.Decimal{},
			PendingDeposits:    []FundRequest{},
			PendingWithdrawals: []FundRequest{},
		},
		Log:         TransactionLog{Txns: []Transaction{}},
		Commissions: CommissionBook{Entries: []CommissionEntry{}},
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s State) Clone() State {
	out := NewState()
	for k, v := range s.Wallet.Balances {
		out.Wallet.Balances[k] = v
	}
	out.Wallet.PendingDeposits = append(out.Wallet.PendingDeposits, s.Wallet.PendingDeposits...)
	out.Wallet.PendingWithdrawals = append(out.Wallet.PendingWithdrawals, s.Wallet.PendingWithdrawals...)
	out.Log.Txns = append(out.Log.Txns, s.Log.Txns...)
	out.Commissions.Entries = append(out.Commissions.Entries, s.Commissions.Entries...)
	return out
}

// Normalize fills nil collections, which happens after decoding a
// snapshot written by an older client.
func (s *State) Normalize() {
	if s.Wallet.Balances == nil {
		s.Wallet.Balances = map[string]decimal.Decimal{}
	}
	if s.Wallet.PendingDeposits == nil {
		s.Wallet.PendingDeposits = []FundRequest{}
	}
	if s.Wallet.PendingWithdrawals == nil {
		s.Wallet.PendingWithdrawals = []FundRequest{}
	}
	if s.Log.Txns == nil {
		s.Log.Txns = []Transaction{}
	}
	if s.Commissions.Entries == nil {
		s.Commissions.Entries = []CommissionEntry{}
	}
}

func strPtr(v string) *string {
	return &v
}
