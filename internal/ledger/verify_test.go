package ledger

import (
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checks(ds []Discrepancy) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Check)
	}
	return out
}

func TestVerifyConsistentState(t *testing.T) {
	assert.Empty(t, Verify(NewState(), Policy{}))
	assert.Empty(t, Verify(seededState(t), Policy{}))
}

func TestVerifyDetectsDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *State)
		want   []string
	}{
		{
			name: "duplicate commission",
			mutate: func(s *State) {
				s.Commissions.AddCommission(CommissionEntry{TxnID: "id-1", Amount: dec("2"), Type: domain.TxTypeDeposit})
			},
			want: []string{CheckCommissionCount},
		},
		{
			name: "wrong commission amount",
			mutate: func(s *State) {
				s.Commissions.Entries[1].Amount = dec("1")
			},
			want: []string{CheckCommissionAmount},
		},
		{
			name: "projection out of step",
			mutate: func(s *State) {
				s.Wallet.PendingDeposits[0].Status = domain.StatusRejected
			},
			want: []string{CheckProjection},
		},
		{
			name: "balance drift",
			mutate: func(s *State) {
				s.Wallet.Credit("b", dec("1"))
			},
			want: []string{CheckBalance},
		},
		{
			name: "orphan commission",
			mutate: func(s *State) {
				s.Commissions.AddCommission(CommissionEntry{TxnID: "ghost", Amount: dec("1"), Type: domain.TxTypeLocal})
			},
			want: []string{CheckOrphanCommission},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := seededState(t)
			tc.mutate(&s)
			assert.Equal(t, tc.want, checks(Verify(s, Policy{})))
		})
	}
}

func TestVerifyFollowsSettlementPolicy(t *testing.T) {
	s := seededState(t)

	// id-5 moved no funds, so a settling policy sees both sides drift.
	ds := Verify(s, Policy{SettleTransfers: true})
	require.Len(t, ds, 2)
	assert.Equal(t, []string{CheckBalance, CheckBalance}, checks(ds))
	assert.Equal(t, "a", ds[0].RefID)
	assert.Equal(t, "b", ds[1].RefID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.StatusPending, domain.StatusApproved))
	assert.True(t, CanTransition(domain.StatusPending, domain.StatusRejected))
	assert.False(t, CanTransition(domain.StatusApproved, domain.StatusRejected))
	assert.False(t, CanTransition(domain.StatusRejected, domain.StatusApproved))
	assert.False(t, CanTransition(domain.StatusApproved, domain.StatusApproved))
	assert.False(t, CanTransition("unknown", domain.StatusApproved))
}

func TestWalletDebit(t *testing.T) {
	s := NewState()
	s.Wallet.Credit("u1", dec("10"))

	_, err := s.Wallet.Debit("u1", dec("10.01"), false)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assertDecimal(t, "10", s.Balance("u1"))

	next, err := s.Wallet.Debit("u1", dec("10"), false)
	require.NoError(t, err)
	assertDecimal(t, "0", next)

	next, err = s.Wallet.Debit("u1", dec("5"), true)
	require.NoError(t, err)
	assertDecimal(t, "-5", next)
}

func TestUpdateStatusByReferenceID(t *testing.T) {
	s := seededState(t)

	txn, ok := s.Log.UpdateStatusByReferenceID("id-2", domain.StatusApproved)
	require.True(t, ok)
	assert.Equal(t, domain.StatusApproved, txn.Status)

	_, ok = s.Log.UpdateStatusByReferenceID("missing", domain.StatusApproved)
	assert.False(t, ok)
}
