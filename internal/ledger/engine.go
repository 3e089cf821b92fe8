package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Policy holds the decisions the observed design left open.
type Policy struct {
	// AllowOverdraft lets an approved debit drive a balance below zero.
	AllowOverdraft bool
	// SettleTransfers moves funds between sender and receiver when a
	// transfer is approved. Off, approval only flips status and books
	// the commission.
	SettleTransfers bool
}

// Command is an operation accepted by Engine.Apply.
type Command interface {
	CommandName() string
}

// RequestDeposit queues a deposit and its log projection.
type RequestDeposit struct {
	UserID string
	Amount decimal.Decimal
}

// RequestWithdrawal queues a withdrawal and its log projection.
type RequestWithdrawal struct {
	UserID string
	Amount decimal.Decimal
}

// InitiateTransfer logs a pending peer transfer.
type InitiateTransfer struct {
	From   string
	To     string
	Amount decimal.Decimal
	Type   domain.TxnType
}

// Approve approves a pending item. An empty Kind is resolved from the
// transaction log.
type Approve struct {
	ID   string
	Kind domain.Kind
}

// Reject rejects a pending item. An empty Kind is resolved like Approve.
type Reject struct {
	ID   string
	Kind domain.Kind
}

// RecordDeposit books a deposit that is settled on the spot.
type RecordDeposit struct {
	UserID string
	Amount decimal.Decimal
}

// RecordWithdrawal books a withdrawal that is settled on the spot.
type RecordWithdrawal struct {
	UserID string
	Amount decimal.Decimal
}

func (RequestDeposit) CommandName() string { return "request_deposit" }
func (RequestWithdrawal) CommandName() string { return "request_withdrawal" }
func (InitiateTransfer) CommandName() string { return "initiate_transfer" }
func (Approve) CommandName() string { return "approve" }
func (Reject) CommandName() string { return "reject" }
func (RecordDeposit) CommandName() string { return "record_deposit" }
func (RecordWithdrawal) CommandName() string { return "record_withdrawal" }

// Outcome is the result of a successful Apply.
type Outcome struct {
	State  State
	Events []Event
	// Ref is the id of the item the command created or changed.
	Ref string
	// Kind is the resolved queue of Ref.
	Kind domain.Kind
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides uuid-based id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// Engine applies commands to states. It keeps no state of its own, so one
// Engine can serve any number of hosts.
type Engine struct {
	policy Policy
	newID  func() string
	now    func() time.Time
}

// NewEngine builds an engine for policy.
func NewEngine(policy Policy, opts ...Option) *Engine {
	e := &Engine{
		policy: policy,
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Apply runs cmd against a copy of s. On success the outcome carries the
// new state; on failure s is returned untouched inside the outcome and the
// error describes why.
func (e *Engine) Apply(s State, cmd Command) (Outcome, error) {
	next := s.Clone()
	t := &transition{engine: e, state: &next}

	var err error
	switch c := cmd.(type) {
	case RequestDeposit:
		err = t.requestFund(domain.KindDeposit, c.UserID, c.Amount)
	case RequestWithdrawal:
		err = t.requestFund(domain.KindWithdrawal, c.UserID, c.Amount)
	case InitiateTransfer:
		err = t.initiateTransfer(c)
	case Approve:
		err = t.approve(c.ID, c.Kind)
	case Reject:
		err = t.reject(c.ID, c.Kind)
	case RecordDeposit:
		err = t.record(domain.KindDeposit, c.UserID, c.Amount)
	case RecordWithdrawal:
		err = t.record(domain.KindWithdrawal, c.UserID, c.Amount)
	case nil:
		err = fmt.Errorf("%w: nil command", ErrInvalidCommand)
	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrInvalidCommand, cmd)
	}
	if err != nil {
		return Outcome{State: s}, err
	}
	return Outcome{State: next, Events: t.events, Ref: t.ref, Kind: t.kind}, nil
}

type transition struct {
	engine *Engine
	state  *State
	events []Event
	ref    string
	kind   domain.Kind
}

func (t *transition) requestFund(kind domain.Kind, userID string, amount decimal.Decimal) error {
	if err := validateUser("userId", userID); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	id := t.engine.newID()
	now := t.engine.now()
	var req FundRequest
	if kind == domain.KindDeposit {
		req = t.state.Wallet.RequestDeposit(id, userID, amount, now)
	} else {
		req = t.state.Wallet.RequestWithdrawal(id, userID, amount, now)
	}
	txn := t.state.Log.LogFundRequest(kind, req)

	t.ref, t.kind = id, kind
	t.emit(Event{
		Type:       EventRequestCreated,
		Kind:       kind,
		RefID:      id,
		UserID:     userID,
		TxnType:    txn.Type,
		Amount:     amount,
		NextStatus: domain.StatusPending,
	})
	return nil
}

func (t *transition) initiateTransfer(c InitiateTransfer) error {
	if err := validateUser("from", c.From); err != nil {
		return err
	}
	if err := validateUser("to", c.To); err != nil {
		return err
	}
	if c.From == c.To {
		return invalid("to", "cannot transfer to the same user")
	}
	if !c.Type.IsTransfer() {
		return invalid("type", fmt.Sprintf("unsupported transfer type %q", c.Type))
	}
	if err := validateAmount(c.Amount); err != nil {
		return err
	}

	id := t.engine.newID()
	t.state.Log.InitiateTransfer(id, TransferParams{
		From:   c.From,
		To:     c.To,
		Amount: c.Amount,
		Type:   c.Type,
	}, t.engine.now())

	t.ref, t.kind = id, domain.KindTransfer
	t.emit(Event{
		Type:       EventRequestCreated,
		Kind:       domain.KindTransfer,
		RefID:      id,
		UserID:     c.From,
		TxnType:    c.Type,
		Amount:     c.Amount,
		NextStatus: domain.StatusPending,
	})
	return nil
}

func (t *transition) approve(id string, kind domain.Kind) error {
	kind, err := t.resolveKind(id, kind)
	if err != nil {
		return err
	}
	t.ref, t.kind = id, kind
	policy := t.engine.policy

	switch kind {
	case domain.KindDeposit:
		req, err := t.state.Wallet.ApproveDeposit(id)
		if err != nil {
			return t.settledMovement(kind, id, err)
		}
		t.statusChanged(kind, req.ID, req.UserID, req.Amount, domain.TxTypeDeposit, domain.StatusApproved)
		t.balanceAdjusted(kind, req.ID, req.UserID, req.Amount)
		t.bookCommission(kind, req.ID, req.Amount, domain.TxTypeDeposit)
		t.state.Log.UpdateStatusByReferenceID(req.ID, domain.StatusApproved)

	case domain.KindWithdrawal:
		req, err := t.state.Wallet.ApproveWithdrawal(id, policy.AllowOverdraft)
		if err != nil {
			return t.settledMovement(kind, id, err)
		}
		t.statusChanged(kind, req.ID, req.UserID, req.Amount, domain.TxTypeWithdrawal, domain.StatusApproved)
		t.balanceAdjusted(kind, req.ID, req.UserID, req.Amount.Neg())
		t.state.Log.UpdateStatusByReferenceID(req.ID, domain.StatusApproved)
		t.bookCommission(kind, req.ID, req.Amount, domain.TxTypeWithdrawal)

	case domain.KindTransfer:
		txn, ok := t.state.Log.Find(id)
		if !ok || txn.Action != domain.ActionNone {
			return &NotFoundError{Kind: kind, ID: id}
		}
		if err := checkTransition(kind, id, txn.Status, domain.StatusApproved); err != nil {
			return err
		}
		if policy.SettleTransfers {
			if err := t.settle(txn); err != nil {
				return err
			}
		}
		approved, err := t.state.Log.ApproveTransfer(id)
		if err != nil {
			return err
		}
		t.statusChanged(kind, approved.ID, deref(approved.From), approved.Amount, approved.Type, domain.StatusApproved)
		t.bookCommission(kind, approved.ID, approved.Amount, approved.Type)
	}
	return nil
}

func (t *transition) settle(txn Transaction) error {
	from, to := deref(txn.From), deref(txn.To)
	if _, err := t.state.Wallet.Debit(from, txn.Amount, t.engine.policy.AllowOverdraft); err != nil {
		return err
	}
	t.balanceAdjusted(domain.KindTransfer, txn.ID, from, txn.Amount.Neg())
	t.state.Wallet.Credit(to, txn.Amount)
	t.balanceAdjusted(domain.KindTransfer, txn.ID, to, txn.Amount)
	return nil
}

func (t *transition) reject(id string, kind domain.Kind) error {
	kind, err := t.resolveKind(id, kind)
	if err != nil {
		return err
	}
	t.ref, t.kind = id, kind

	switch kind {
	case domain.KindDeposit, domain.KindWithdrawal:
		var req FundRequest
		if kind == domain.KindDeposit {
			req, err = t.state.Wallet.RejectDeposit(id)
		} else {
			req, err = t.state.Wallet.RejectWithdrawal(id)
		}
		if err != nil {
			return t.settledMovement(kind, id, err)
		}
		typ := domain.TxTypeDeposit
		if kind == domain.KindWithdrawal {
			typ = domain.TxTypeWithdrawal
		}
		t.statusChanged(kind, req.ID, req.UserID, req.Amount, typ, domain.StatusRejected)
		t.state.Log.UpdateStatusByReferenceID(req.ID, domain.StatusRejected)

	case domain.KindTransfer:
		txn, err := t.state.Log.RejectTransfer(id)
		if err != nil {
			return err
		}
		t.statusChanged(kind, txn.ID, deref(txn.From), txn.Amount, txn.Type, domain.StatusRejected)
	}
	return nil
}

func (t *transition) record(kind domain.Kind, userID string, amount decimal.Decimal) error {
	if err := validateUser("userId", userID); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	id := t.engine.newID()
	now := t.engine.now()
	var txn Transaction
	if kind == domain.KindDeposit {
		t.state.Wallet.Credit(userID, amount)
		txn = t.state.Log.RecordDeposit(id, MovementParams{To: userID, Amount: amount}, now)
		t.balanceAdjusted(kind, id, userID, amount)
	} else {
		if _, err := t.state.Wallet.Debit(userID, amount, t.engine.policy.AllowOverdraft); err != nil {
			return err
		}
		txn = t.state.Log.RecordWithdrawal(id, MovementParams{From: userID, Amount: amount}, now)
		t.balanceAdjusted(kind, id, userID, amount.Neg())
	}

	t.ref, t.kind = id, kind
	t.emit(Event{
		Type:       EventRequestCreated,
		Kind:       kind,
		RefID:      id,
		UserID:     userID,
		TxnType:    txn.Type,
		Amount:     amount,
		NextStatus: domain.StatusApproved,
	})
	t.bookCommission(kind, id, amount, txn.Type)
	return nil
}

// settledMovement turns a queue miss into AlreadyProcessedError when id is
// a recorded deposit or withdrawal. Those live only in the log and are
// approved at creation, so they can never be reviewed.
func (t *transition) settledMovement(kind domain.Kind, id string, err error) error {
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	txn, ok := t.state.Log.Find(id)
	if !ok || txn.Kind() != kind {
		return err
	}
	return &AlreadyProcessedError{Kind: kind, ID: id, Status: txn.Status}
}

// resolveKind prefers the log projection, then the wallet queues.
func (t *transition) resolveKind(id string, kind domain.Kind) (domain.Kind, error) {
	if strings.TrimSpace(id) == "" {
		return "", invalid("id", "is required")
	}
	if kind != "" {
		if !kind.Valid() {
			return "", invalid("kind", fmt.Sprintf("unsupported kind %q", kind))
		}
		return kind, nil
	}
	if txn, ok := t.state.Log.Find(id); ok {
		return txn.Kind(), nil
	}
	if _, ok := t.state.Wallet.FindRequest(domain.KindDeposit, id); ok {
		return domain.KindDeposit, nil
	}
	if _, ok := t.state.Wallet.FindRequest(domain.KindWithdrawal, id); ok {
		return domain.KindWithdrawal, nil
	}
	return "", &NotFoundError{ID: id}
}

func (t *transition) statusChanged(kind domain.Kind, id, userID string, amount decimal.Decimal, typ domain.TxnType, next domain.Status) {
	t.emit(Event{
		Type:       EventStatusChanged,
		Kind:       kind,
		RefID:      id,
		UserID:     userID,
		TxnType:    typ,
		Amount:     amount,
		PrevStatus: domain.StatusPending,
		NextStatus: next,
	})
}

func (t *transition) balanceAdjusted(kind domain.Kind, id, userID string, delta decimal.Decimal) {
	t.emit(Event{
		Type:    EventBalanceAdjusted,
		Kind:    kind,
		RefID:   id,
		UserID:  userID,
		Amount:  delta,
		Balance: t.state.Wallet.Balance(userID),
	})
}

func (t *transition) bookCommission(kind domain.Kind, id string, amount decimal.Decimal, typ domain.TxnType) {
	entry := t.state.Commissions.Book(id, amount, typ)
	t.emit(Event{
		Type:    EventCommissionBooked,
		Kind:    kind,
		RefID:   id,
		TxnType: typ,
		Amount:  entry.Amount,
	})
}

func (t *transition) emit(ev Event) {
	t.events = append(t.events, ev)
}

func validateUser(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return invalid("amount", err.Error())
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
