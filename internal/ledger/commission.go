package ledger

import (
	"sort"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AddCommission appends one entry. Entries are never edited or removed.
func (b *CommissionBook) AddCommission(entry CommissionEntry) {
	b.Entries = append(b.Entries, entry)
}

// Book computes and appends the commission for an approved amount.
func (b *CommissionBook) Book(txnID string, amount decimal.Decimal, typ domain.TxnType) CommissionEntry {
	entry := CommissionEntry{
		TxnID:  txnID,
		Amount: domain.Commission(amount, typ),
		Type:   typ,
	}
	b.AddCommission(entry)
	return entry
}

// ForTxn returns every entry that references txnID.
func (b CommissionBook) ForTxn(txnID string) []CommissionEntry {
	var out []CommissionEntry
	for _, e := range b.Entries {
		if e.TxnID == txnID {
			out = append(out, e)
		}
	}
	return out
}

// TypeTotal is the commission collected for one transaction type.
type TypeTotal struct {
	Type   domain.TxnType  `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// CommissionSummary aggregates the book for reporting.
type CommissionSummary struct {
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
	ByType []TypeTotal     `json:"byType"`
}

// Summary totals the book overall and per type, largest amount first.
func (b CommissionBook) Summary() CommissionSummary {
	totals := map[domain.TxnType]*TypeTotal{}
	sum := CommissionSummary{Total: decimal.Zero, ByType: []TypeTotal{}}
	for _, e := range b.Entries {
		sum.Total = sum.Total.Add(e.Amount)
		sum.Count++
		tt, ok := totals[e.Type]
		if !ok {
			tt = &TypeTotal{Type: e.Type, Amount: decimal.Zero}
			totals[e.Type] = tt
		}
		tt.Amount = tt.Amount.Add(e.Amount)
		tt.Count++
	}
	for _, tt := range totals {
		sum.ByType = append(sum.ByType, *tt)
	}
	sort.Slice(sum.ByType, func(i, j int) bool {
		if c := sum.ByType[i].Amount.Cmp(sum.ByType[j].Amount); c != 0 {
			return c > 0
		}
		return sum.ByType[i].Type < sum.ByType[j].Type
	})
	return sum
}
