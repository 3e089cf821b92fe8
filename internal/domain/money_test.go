package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "integer", in: "100", want: "100"},
		{name: "decimal", in: " 10.50 ", want: "10.5"},
		{name: "micros", in: "0.000001", want: "0.000001"},
		{name: "empty", in: "", wantErr: ErrAmountRequired},
		{name: "zero", in: "0", wantErr: ErrAmountNotPositive},
		{name: "negative", in: "-5", wantErr: ErrAmountNotPositive},
		{name: "too_precise", in: "1.0000001", wantErr: ErrAmountPrecision},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	_, err := ParseAmount("ten")
	require.Error(t, err)
}

func TestCommissionRate(t *testing.T) {
	cases := []struct {
		typ  TxnType
		want string
	}{
		{TxTypeDeposit, "0.02"},
		{TxTypeWithdrawal, "0.02"},
		{TxTypeLocal, "0.01"},
		{TxTypeInternational, "0.05"},
		{TxTypeIntl, "0.05"},
	}
	for _, tc := range cases {
		assert.True(t, decimal.RequireFromString(tc.want).Equal(CommissionRate(tc.typ)), "rate for %s", tc.typ)
	}
}

func TestCommission(t *testing.T) {
	assert.Equal(t, "2", Commission(decimal.NewFromInt(100), TxTypeDeposit).String())
	assert.Equal(t, "0.4", Commission(decimal.NewFromInt(40), TxTypeLocal).String())
	assert.Equal(t, "2", Commission(decimal.NewFromInt(40), TxTypeInternational).String())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.40", FormatAmount(decimal.RequireFromString("0.4")))
}

func TestKindForAction(t *testing.T) {
	assert.Equal(t, KindDeposit, KindForAction(ActionDeposit))
	assert.Equal(t, KindWithdrawal, KindForAction(ActionWithdrawal))
	assert.Equal(t, KindTransfer, KindForAction(ActionNone))
}
