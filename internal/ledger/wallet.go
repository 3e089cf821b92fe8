package ledger

import (
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// The Wallet methods below mutate the receiver in place. Engine.Apply runs
// them against a private clone so a failed workflow never leaks a partial
// update.

// Balance returns the current balance of userID; unknown users are zero.
func (w *Wallet) Balance(userID string) decimal.Decimal {
	if b, ok := w.Balances[userID]; ok {
		return b
	}
	return decimal.Zero
}

// Credit adds amount to the user balance and returns the new balance.
func (w *Wallet) Credit(userID string, amount decimal.Decimal) decimal.Decimal {
	next := w.Balance(userID).Add(amount)
	w.Balances[userID] = next
	return next
}

// Debit subtracts amount from the user balance. Without overdraft a debit
// that would go below zero fails and leaves the balance untouched.
func (w *Wallet) Debit(userID string, amount decimal.Decimal, allowOverdraft bool) (decimal.Decimal, error) {
	current := w.Balance(userID)
	next := current.Sub(amount)
	if next.IsNegative() && !allowOverdraft {
		return current, &InsufficientFundsError{UserID: userID, Balance: current, Requested: amount}
	}
	w.Balances[userID] = next
	return next, nil
}

// RequestDeposit queues a pending deposit for userID.
func (w *Wallet) RequestDeposit(id, userID string, amount decimal.Decimal, now time.Time) FundRequest {
	req := newFundRequest(id, userID, amount, now)
	w.PendingDeposits = append(w.PendingDeposits, req)
	return req
}

// RequestWithdrawal queues a pending withdrawal for userID.
func (w *Wallet) RequestWithdrawal(id, userID string, amount decimal.Decimal, now time.Time) FundRequest {
	req := newFundRequest(id, userID, amount, now)
	w.PendingWithdrawals = append(w.PendingWithdrawals, req)
	return req
}

// ApproveDeposit marks the request approved and credits the user.
func (w *Wallet) ApproveDeposit(id string) (FundRequest, error) {
	req, err := w.transition(domain.KindDeposit, id, domain.StatusApproved)
	if err != nil {
		return FundRequest{}, err
	}
	w.Credit(req.UserID, req.Amount)
	return *req, nil
}

// ApproveWithdrawal marks the request approved and debits the user.
// The balance check runs before the status flips so a refused debit
// leaves the request pending.
func (w *Wallet) ApproveWithdrawal(id string, allowOverdraft bool) (FundRequest, error) {
	req, err := w.find(domain.KindWithdrawal, id)
	if err != nil {
		return FundRequest{}, err
	}
	if err := checkTransition(domain.KindWithdrawal, id, req.Status, domain.StatusApproved); err != nil {
		return FundRequest{}, err
	}
	if _, err := w.Debit(req.UserID, req.Amount, allowOverdraft); err != nil {
		return FundRequest{}, err
	}
	req.Status = domain.StatusApproved
	return *req, nil
}

// RejectDeposit marks a pending deposit rejected.
func (w *Wallet) RejectDeposit(id string) (FundRequest, error) {
	req, err := w.transition(domain.KindDeposit, id, domain.StatusRejected)
	if err != nil {
		return FundRequest{}, err
	}
	return *req, nil
}

// RejectWithdrawal marks a pending withdrawal rejected.
func (w *Wallet) RejectWithdrawal(id string) (FundRequest, error) {
	req, err := w.transition(domain.KindWithdrawal, id, domain.StatusRejected)
	if err != nil {
		return FundRequest{}, err
	}
	return *req, nil
}

// FindRequest looks id up in the queue for kind.
func (w *Wallet) FindRequest(kind domain.Kind, id string) (FundRequest, bool) {
	req, err := w.find(kind, id)
	if err != nil {
		return FundRequest{}, false
	}
	return *req, true
}

func (w *Wallet) transition(kind domain.Kind, id string, next domain.Status) (*FundRequest, error) {
	req, err := w.find(kind, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(kind, id, req.Status, next); err != nil {
		return nil, err
	}
	req.Status = next
	return req, nil
}

func (w *Wallet) find(kind domain.Kind, id string) (*FundRequest, error) {
	queue := w.queue(kind)
	for i := range queue {
		if queue[i].ID == id {
			return &queue[i], nil
		}
	}
	return nil, &NotFoundError{Kind: kind, ID: id}
}

func (w *Wallet) queue(kind domain.Kind) []FundRequest {
	switch kind {
	case domain.KindDeposit:
		return w.PendingDeposits
	case domain.KindWithdrawal:
		return w.PendingWithdrawals
	}
	return nil
}

func newFundRequest(id, userID string, amount decimal.Decimal, now time.Time) FundRequest {
	return FundRequest{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
}
