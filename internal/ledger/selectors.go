package ledger

import (
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Balance returns the balance of userID.
func (s State) Balance(userID string) decimal.Decimal {
	return s.Wallet.Balance(userID)
}

// PendingDeposits returns deposit requests still awaiting review.
func (s State) PendingDeposits() []FundRequest {
	return filterRequests(s.Wallet.PendingDeposits, domain.StatusPending, "")
}

// PendingWithdrawals returns withdrawal requests still awaiting review.
func (s State) PendingWithdrawals() []FundRequest {
	return filterRequests(s.Wallet.PendingWithdrawals, domain.StatusPending, "")
}

// RequestsFor returns every deposit and withdrawal request made by userID.
func (s State) RequestsFor(userID string) (deposits, withdrawals []FundRequest) {
	return filterRequests(s.Wallet.PendingDeposits, "", userID),
		filterRequests(s.Wallet.PendingWithdrawals, "", userID)
}

// PendingTransfers returns peer transfers awaiting review.
func (s State) PendingTransfers() []Transaction {
	out := []Transaction{}
	for _, t := range s.Log.Txns {
		if t.Action == domain.ActionNone && t.Status == domain.StatusPending && t.From != nil && t.To != nil {
			out = append(out, t)
		}
	}
	return out
}

// Rejected returns every rejected item across all kinds, oldest first.
func (s State) Rejected() []Transaction {
	out := []Transaction{}
	for _, t := range s.Log.Txns {
		if t.Status == domain.StatusRejected {
			out = append(out, t)
		}
	}
	return out
}

// Transactions returns a copy of the whole log.
func (s State) Transactions() []Transaction {
	return append([]Transaction{}, s.Log.Txns...)
}

// TransactionsFor returns the log entries where userID sends or receives.
func (s State) TransactionsFor(userID string) []Transaction {
	out := []Transaction{}
	for _, t := range s.Log.Txns {
		if t.Touches(userID) {
			out = append(out, t)
		}
	}
	return out
}

// Transaction looks a log entry up by id.
func (s State) Transaction(id string) (Transaction, bool) {
	return s.Log.Find(id)
}

// QueueStat is the count and total amount of one pending queue.
type QueueStat struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (q *QueueStat) add(amount decimal.Decimal) {
	q.Count++
	q.Amount = q.Amount.Add(amount)
}

// PendingStats summarizes the admin review queues.
type PendingStats struct {
	Deposits    QueueStat `json:"deposits"`
	Withdrawals QueueStat `json:"withdrawals"`
	Transfers   QueueStat `json:"transfers"`
	Total       QueueStat `json:"total"`
}

// PendingStats counts and sums every pending queue.
func (s State) PendingStats() PendingStats {
	st := PendingStats{
		Deposits:    QueueStat{Amount: decimal.Zero},
		Withdrawals: QueueStat{Amount: decimal.Zero},
		Transfers:   QueueStat{Amount: decimal.Zero},
		Total:       QueueStat{Amount: decimal.Zero},
	}
	for _, r := range s.PendingDeposits() {
		st.Deposits.add(r.Amount)
		st.Total.add(r.Amount)
	}
	for _, r := range s.PendingWithdrawals() {
		st.Withdrawals.add(r.Amount)
		st.Total.add(r.Amount)
	}
	for _, t := range s.PendingTransfers() {
		st.Transfers.add(t.Amount)
		st.Total.add(t.Amount)
	}
	return st
}

// UserStats is the per-user dashboard view.
type UserStats struct {
	Balance        decimal.Decimal `json:"balance"`
	TotalDeposited decimal.Decimal `json:"totalDeposited"`
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"`
	TotalSent      decimal.Decimal `json:"totalSent"`
	TotalReceived  decimal.Decimal `json:"totalReceived"`
	PendingCount   int             `json:"pendingCount"`
}

// UserStats aggregates approved movements for userID.
func (s State) UserStats(userID string) UserStats {
	st := UserStats{
		Balance:        s.Balance(userID),
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalSent:      decimal.Zero,
		TotalReceived:  decimal.Zero,
	}
	for _, t := range s.Log.Txns {
		if !t.Touches(userID) {
			continue
		}
		if t.Status == domain.StatusPending {
			st.PendingCount++
			continue
		}
		if t.Status != domain.StatusApproved {
			continue
		}
		switch t.Action {
		case domain.ActionDeposit:
			st.TotalDeposited = st.TotalDeposited.Add(t.Amount)
		case domain.ActionWithdrawal:
			st.TotalWithdrawn = st.TotalWithdrawn.Add(t.Amount)
		default:
			if deref(t.From) == userID {
				st.TotalSent = st.TotalSent.Add(t.Amount)
			} else {
				st.TotalReceived = st.TotalReceived.Add(t.Amount)
			}
		}
	}
	return st
}

func filterRequests(reqs []FundRequest, status domain.Status, userID string) []FundRequest {
	out := []FundRequest{}
	for _, r := range reqs {
		if status != "" && r.Status != status {
			continue
		}
		if userID != "" && r.UserID != userID {
			continue
		}
		out = append(out, r)
	}
	return out
}
