package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func walletctl(t *testing.T, state string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--state", state}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestDepositApproveFlow(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	res := walletctl(t, state, "deposit", "--user", "alice", "--amount", "100")
	require.Equal(t, exitOK, res.code, res.stderr)
	var fr ledger.FundRequest
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &fr))
	assert.Equal(t, domain.StatusPending, fr.Status)

	res = walletctl(t, state, "approve", fr.ID)
	require.Equal(t, exitOK, res.code, res.stderr)
	var txn ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &txn))
	assert.Equal(t, domain.StatusApproved, txn.Status)

	res = walletctl(t, state, "approve", fr.ID)
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "already")

	res = walletctl(t, state, "show", "--user", "alice")
	require.Equal(t, exitOK, res.code, res.stderr)
	var view walletView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &view))
	assert.Equal(t, "100", view.Balance.String())

	res = walletctl(t, state, "verify")
	assert.Equal(t, exitOK, res.code, res.stdout)
	assert.Contains(t, res.stdout, "ledger consistent")
}

func TestTransferAndOverview(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	require.Equal(t, exitOK, walletctl(t, state, "record", "--user", "alice", "--amount", "50").code)
	res := walletctl(t, state, "transfer", "--from", "alice", "--to", "bob", "--amount", "20", "--type", "intl")
	require.Equal(t, exitOK, res.code, res.stderr)
	var txn ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &txn))

	res = walletctl(t, state, "--settle-transfers", "approve", txn.ID, "--kind", "transfer")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = walletctl(t, state, "show")
	require.Equal(t, exitOK, res.code, res.stderr)
	var ov overview
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &ov))
	assert.Equal(t, "30", ov.Balances["alice"].String())
	assert.Equal(t, "20", ov.Balances["bob"].String())
	assert.Equal(t, 2, ov.Txns)
	// 2% of the recorded deposit plus 5% of the transfer.
	assert.Equal(t, "2", ov.Commissions.Total.String())
}

func TestVerifyReportsDriftUnderOtherPolicy(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	require.Equal(t, exitOK, walletctl(t, state, "record", "--user", "alice", "--amount", "50").code)
	res := walletctl(t, state, "transfer", "--from", "alice", "--to", "bob", "--amount", "20")
	require.Equal(t, exitOK, res.code)
	var txn ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &txn))
	require.Equal(t, exitOK, walletctl(t, state, "approve", txn.ID).code)

	// Balances were not moved, so a settling verifier sees drift.
	res = walletctl(t, state, "--settle-transfers", "verify")
	assert.Equal(t, exitDiscrepant, res.code)
	assert.Contains(t, res.stdout, ledger.CheckBalance)
}

func TestUsageErrors(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	assert.Equal(t, exitUsage, walletctl(t, state).code)
	assert.Equal(t, exitUsage, walletctl(t, state, "explode").code)
	assert.Equal(t, exitUsage, walletctl(t, state, "approve").code)

	res := walletctl(t, state, "deposit", "--user", "alice", "--amount", "-3")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "--amount")

	res = walletctl(t, state, "withdraw", "--amount", "3")
	assert.Equal(t, exitFailure, res.code)
}
