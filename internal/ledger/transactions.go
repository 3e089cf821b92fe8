package ledger

import (
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// TransferParams describes a peer transfer.
type TransferParams struct {
	From   string
	To     string
	Amount decimal.Decimal
	Type   domain.TxnType
}

// MovementParams describes a deposit or withdrawal log entry. From is
// empty for deposits and To is empty for withdrawals.
type MovementParams struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// InitiateTransfer appends a pending transfer.
func (l *TransactionLog) InitiateTransfer(id string, p TransferParams, now time.Time) Transaction {
	txn := Transaction{
		ID:        id,
		From:      strPtr(p.From),
		To:        strPtr(p.To),
		Amount:    p.Amount,
		Type:      p.Type,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
	l.Txns = append(l.Txns, txn)
	return txn
}

// LogFundRequest appends the ledger-facing projection of a deposit or
// withdrawal request. It shares the request id.
func (l *TransactionLog) LogFundRequest(kind domain.Kind, req FundRequest) Transaction {
	txn := Transaction{
		ID:        req.ID,
		Amount:    req.Amount,
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
	}
	if kind == domain.KindDeposit {
		txn.To = strPtr(req.UserID)
		txn.Type = domain.TxTypeDeposit
		txn.Action = domain.ActionDeposit
	} else {
		txn.From = strPtr(req.UserID)
		txn.Type = domain.TxTypeWithdrawal
		txn.Action = domain.ActionWithdrawal
	}
	l.Txns = append(l.Txns, txn)
	return txn
}

// RecordDeposit appends a deposit already marked approved.
func (l *TransactionLog) RecordDeposit(id string, p MovementParams, now time.Time) Transaction {
	return l.record(id, p, domain.ActionDeposit, domain.TxTypeDeposit, now)
}

// RecordWithdrawal appends a withdrawal already marked approved.
func (l *TransactionLog) RecordWithdrawal(id string, p MovementParams, now time.Time) Transaction {
	return l.record(id, p, domain.ActionWithdrawal, domain.TxTypeWithdrawal, now)
}

// ApproveTransfer marks a pending transfer approved. The caller books the
// commission.
func (l *TransactionLog) ApproveTransfer(id string) (Transaction, error) {
	return l.transitionTransfer(id, domain.StatusApproved)
}

// RejectTransfer marks a pending transfer rejected.
func (l *TransactionLog) RejectTransfer(id string) (Transaction, error) {
	return l.transitionTransfer(id, domain.StatusRejected)
}

// UpdateStatusByReferenceID keeps the log entry that shares an id with a
// fund request in step with it. It reports false when no entry matches.
func (l *TransactionLog) UpdateStatusByReferenceID(referenceID string, status domain.Status) (Transaction, bool) {
	for i := range l.Txns {
		if l.Txns[i].ID == referenceID {
			l.Txns[i].Status = status
			return l.Txns[i], true
		}
	}
	return Transaction{}, false
}

// Find returns the transaction with id.
func (l *TransactionLog) Find(id string) (Transaction, bool) {
	if txn := l.find(id); txn != nil {
		return *txn, true
	}
	return Transaction{}, false
}

func (l *TransactionLog) transitionTransfer(id string, next domain.Status) (Transaction, error) {
	txn := l.find(id)
	if txn == nil || txn.Action != domain.ActionNone {
		return Transaction{}, &NotFoundError{Kind: domain.KindTransfer, ID: id}
	}
	if err := checkTransition(domain.KindTransfer, id, txn.Status, next); err != nil {
		return Transaction{}, err
	}
	txn.Status = next
	return *txn, nil
}

func (l *TransactionLog) record(id string, p MovementParams, action domain.Action, typ domain.TxnType, now time.Time) Transaction {
	txn := Transaction{
		ID:        id,
		Amount:    p.Amount,
		Type:      typ,
		Action:    action,
		Status:    domain.StatusApproved,
		CreatedAt: now,
	}
	if p.From != "" {
		txn.From = strPtr(p.From)
	}
	if p.To != "" {
		txn.To = strPtr(p.To)
	}
	l.Txns = append(l.Txns, txn)
	return txn
}

func (l *TransactionLog) find(id string) *Transaction {
	for i := range l.Txns {
		if l.Txns[i].ID == id {
			return &l.Txns[i]
		}
	}
	return nil
}
