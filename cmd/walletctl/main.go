// Command walletctl drives the wallet ledger stored in a local snapshot file.
//
//	walletctl [--state FILE] <command> [flags]
//
// Commands: deposit, withdraw, transfer, record, approve, reject, show, verify.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/snapshot"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitDiscrepant = 3
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type globals struct {
	statePath       string
	actor           string
	allowOverdraft  bool
	settleTransfers bool
	verbose         bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := pflag.NewFlagSet("walletctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.statePath, "state", "f", envOr("WALLET_STATE_FILE", "data/app_state.json"), "Snapshot file")
	fs.StringVar(&g.actor, "actor", "walletctl", "Actor recorded in logs for approvals")
	fs.BoolVar(&g.allowOverdraft, "allow-overdraft", false, "Let withdrawals and transfers drive balances negative")
	fs.BoolVar(&g.settleTransfers, "settle-transfers", false, "Move funds when a transfer is approved")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "Log to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: walletctl [--state FILE] <deposit|withdraw|transfer|record|approve|reject|show|verify> [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	logger := zap.NewNop()
	if g.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	engine := ledger.NewEngine(ledger.Policy{AllowOverdraft: g.allowOverdraft, SettleTransfers: g.settleTransfers})
	svc := service.NewWalletService(engine, snapshot.NewFileStore(g.statePath), service.NewAuditService(nil, logger), logger)
	if err := svc.Restore(ctx); err != nil {
		fmt.Fprintf(stderr, "walletctl: %v\n", err)
		return exitFailure
	}

	c := &cli{svc: svc, actor: g.actor, stdout: stdout, stderr: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	handlers := map[string]func(context.Context, []string) error{
		"deposit":  c.deposit,
		"withdraw": c.withdraw,
		"transfer": c.transfer,
		"record":   c.record,
		"approve":  c.approve,
		"reject":   c.reject,
		"show":     c.show,
		"verify":   c.verify,
	}
	h, ok := handlers[cmd]
	if !ok {
		fmt.Fprintf(stderr, "walletctl: unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}

	err := h(ctx, rest)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, pflag.ErrHelp):
		return exitUsage
	case errors.Is(err, errDiscrepancies):
		return exitDiscrepant
	default:
		fmt.Fprintf(stderr, "walletctl: %v\n", err)
		return exitFailure
	}
}

var (
	errUsage         = errors.New("usage")
	errDiscrepancies = errors.New("ledger discrepancies found")
)

type cli struct {
	svc    *service.WalletService
	actor  string
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) deposit(ctx context.Context, args []string) error {
	return c.fundRequest(ctx, "deposit", args, c.svc.RequestDeposit)
}

func (c *cli) withdraw(ctx context.Context, args []string) error {
	return c.fundRequest(ctx, "withdraw", args, c.svc.RequestWithdrawal)
}

type requestFunc func(ctx context.Context, userID string, amount decimal.Decimal) (ledger.FundRequest, error)

func (c *cli) fundRequest(ctx context.Context, name string, args []string, fn requestFunc) error {
	fs := c.flags(name)
	user := fs.StringP("user", "u", "", "User id")
	amount := fs.StringP("amount", "a", "", "Amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	fr, err := fn(ctx, *user, amt)
	if err != nil {
		return err
	}
	return c.print(fr)
}

func (c *cli) transfer(ctx context.Context, args []string) error {
	fs := c.flags("transfer")
	from := fs.String("from", "", "Sender id")
	to := fs.String("to", "", "Receiver id")
	amount := fs.StringP("amount", "a", "", "Amount")
	typ := fs.StringP("type", "t", string(domain.TxTypeLocal), "local, international or intl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	txn, err := c.svc.Transfer(ctx, *from, *to, amt, domain.TxnType(*typ))
	if err != nil {
		return err
	}
	return c.print(txn)
}

func (c *cli) record(ctx context.Context, args []string) error {
	fs := c.flags("record")
	user := fs.StringP("user", "u", "", "User id")
	amount := fs.StringP("amount", "a", "", "Amount")
	action := fs.String("action", string(domain.ActionDeposit), "deposit or withdrawal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amt, err := parseAmount(*amount)
	if err != nil {
		return err
	}
	txn, err := c.svc.Record(ctx, c.actor, domain.Kind(*action), *user, amt)
	if err != nil {
		return err
	}
	return c.print(txn)
}

func (c *cli) approve(ctx context.Context, args []string) error {
	return c.review(ctx, "approve", args, c.svc.Approve)
}

func (c *cli) reject(ctx context.Context, args []string) error {
	return c.review(ctx, "reject", args, c.svc.Reject)
}

type reviewFunc func(ctx context.Context, actorID, id string, kind domain.Kind) (ledger.Transaction, error)

func (c *cli) review(ctx context.Context, name string, args []string, fn reviewFunc) error {
	fs := c.flags(name)
	kind := fs.StringP("kind", "k", "", "deposit, withdrawal or transfer (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(c.stderr, "usage: walletctl %s ID [--kind KIND]\n", name)
		return errUsage
	}
	txn, err := fn(ctx, c.actor, fs.Arg(0), domain.Kind(*kind))
	if err != nil {
		return err
	}
	return c.print(txn)
}

type walletView struct {
	UserID      string               `json:"userId"`
	Balance     decimal.Decimal      `json:"balance"`
	Deposits    []ledger.FundRequest `json:"deposits"`
	Withdrawals []ledger.FundRequest `json:"withdrawals"`
	Stats       ledger.UserStats     `json:"stats"`
}

type overview struct {
	Balances    map[string]decimal.Decimal `json:"balances"`
	Pending     ledger.PendingStats        `json:"pending"`
	Commissions ledger.CommissionSummary   `json:"commissions"`
	Txns        int                        `json:"transactions"`
}

func (c *cli) show(_ context.Context, args []string) error {
	fs := c.flags("show")
	user := fs.StringP("user", "u", "", "Show one wallet")
	raw := fs.Bool("raw", false, "Print the whole snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	state := c.svc.Snapshot()
	switch {
	case *raw:
		payload, err := snapshot.Encode(state)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.stdout, string(payload))
		return err
	case *user != "":
		deposits, withdrawals := state.RequestsFor(*user)
		return c.print(walletView{
			UserID:      *user,
			Balance:     state.Balance(*user),
			Deposits:    deposits,
			Withdrawals: withdrawals,
			Stats:       state.UserStats(*user),
		})
	default:
		return c.print(overview{
			Balances:    state.Wallet.Balances,
			Pending:     state.PendingStats(),
			Commissions: state.Commissions.Summary(),
			Txns:        len(state.Log.Txns),
		})
	}
}

func (c *cli) verify(_ context.Context, args []string) error {
	if err := c.flags("verify").Parse(args); err != nil {
		return err
	}
	found := ledger.Verify(c.svc.Snapshot(), c.svc.Policy())
	if len(found) == 0 {
		_, err := fmt.Fprintln(c.stdout, "ledger consistent")
		return err
	}
	if err := c.print(found); err != nil {
		return err
	}
	return errDiscrepancies
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(text string) (decimal.Decimal, error) {
	amt, err := domain.ParseAmount(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--amount: %w", err)
	}
	return amt, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
