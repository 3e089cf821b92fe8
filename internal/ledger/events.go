package ledger

import (
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// EventType names a fact produced by a successful transition.
type EventType string

const (
	EventRequestCreated   EventType = "request.created"
	EventStatusChanged    EventType = "status.changed"
	EventBalanceAdjusted  EventType = "balance.adjusted"
	EventCommissionBooked EventType = "commission.booked"
)

// Event describes one sub-mutation of a command. Hosts feed them to the
// audit trail and to metrics; the state itself never depends on them.
type Event struct {
	Type       EventType       `json:"type"`
	Kind       domain.Kind     `json:"kind,omitempty"`
	RefID      string          `json:"refId"`
	UserID     string          `json:"userId,omitempty"`
	TxnType    domain.TxnType  `json:"txnType,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	PrevStatus domain.Status   `json:"prevStatus,omitempty"`
	NextStatus domain.Status   `json:"nextStatus,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
}
