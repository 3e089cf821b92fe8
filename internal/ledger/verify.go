package ledger

import (
	"fmt"
	"sort"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Discrepancy checks reported by Verify.
const (
	CheckCommissionCount  = "commission_count"
	CheckCommissionAmount = "commission_amount"
	CheckProjection       = "projection"
	CheckBalance          = "balance"
	CheckOrphanCommission = "orphan_commission"
)

// Discrepancy is one broken ledger invariant.
type Discrepancy struct {
	Check  string `json:"check"`
	RefID  string `json:"refId"`
	Detail string `json:"detail"`
}

// Verify checks the invariants a state produced by Engine must satisfy
// under policy. An empty result means the state is consistent.
func Verify(s State, policy Policy) []Discrepancy {
	var out []Discrepancy

	byTxn := map[string][]CommissionEntry{}
	for _, c := range s.Commissions.Entries {
		byTxn[c.TxnID] = append(byTxn[c.TxnID], c)
	}
	derived := map[string]decimal.Decimal{}
	add := func(user string, delta decimal.Decimal) {
		cur, ok := derived[user]
		if !ok {
			cur = decimal.Zero
		}
		derived[user] = cur.Add(delta)
	}

	seen := map[string]struct{}{}
	for _, t := range s.Log.Txns {
		seen[t.ID] = struct{}{}
		entries := byTxn[t.ID]
		if t.Status != domain.StatusApproved {
			if len(entries) > 0 {
				out = append(out, Discrepancy{CheckCommissionCount, t.ID, fmt.Sprintf("%s transaction has %d commission entries", t.Status, len(entries))})
			}
			continue
		}
		if len(entries) != 1 {
			out = append(out, Discrepancy{CheckCommissionCount, t.ID, fmt.Sprintf("approved transaction has %d commission entries", len(entries))})
		} else if want := domain.Commission(t.Amount, t.Type); !entries[0].Amount.Equal(want) {
			out = append(out, Discrepancy{CheckCommissionAmount, t.ID, fmt.Sprintf("commission %s, expected %s", entries[0].Amount, want)})
		}

		switch t.Action {
		case domain.ActionDeposit:
			add(deref(t.To), t.Amount)
		case domain.ActionWithdrawal:
			add(deref(t.From), t.Amount.Neg())
		default:
			if policy.SettleTransfers {
				add(deref(t.From), t.Amount.Neg())
				add(deref(t.To), t.Amount)
			}
		}
	}

	for id := range byTxn {
		if _, ok := seen[id]; !ok {
			out = append(out, Discrepancy{CheckOrphanCommission, id, "commission references no transaction"})
		}
	}

	checkProjection := func(kind domain.Kind, reqs []FundRequest) {
		for _, r := range reqs {
			txn, ok := s.Log.Find(r.ID)
			switch {
			case !ok:
				out = append(out, Discrepancy{CheckProjection, r.ID, fmt.Sprintf("%s request has no log entry", kind)})
			case txn.Status != r.Status:
				out = append(out, Discrepancy{CheckProjection, r.ID, fmt.Sprintf("%s request is %s, log entry is %s", kind, r.Status, txn.Status)})
			case !txn.Amount.Equal(r.Amount):
				out = append(out, Discrepancy{CheckProjection, r.ID, fmt.Sprintf("%s request amount %s, log entry %s", kind, r.Amount, txn.Amount)})
			}
		}
	}
	checkProjection(domain.KindDeposit, s.Wallet.PendingDeposits)
	checkProjection(domain.KindWithdrawal, s.Wallet.PendingWithdrawals)

	users := map[string]struct{}{}
	for u := range s.Wallet.Balances {
		users[u] = struct{}{}
	}
	for u := range derived {
		users[u] = struct{}{}
	}
	for u := range users {
		got := s.Wallet.Balance(u)
		want, ok := derived[u]
		if !ok {
			want = decimal.Zero
		}
		if !got.Equal(want) {
			out = append(out, Discrepancy{CheckBalance, u, fmt.Sprintf("balance %s, derived %s", got, want)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Check != out[j].Check {
			return out[i].Check < out[j].Check
		}
		return out[i].RefID < out[j].RefID
	})
	return out
}
