package domain

// Status is the approval state shared by fund requests and transactions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// TxnType classifies a transaction for commission purposes.
type TxnType string

const (
	TxTypeLocal         TxnType = "local"
	TxTypeInternational TxnType = "international"
	TxTypeIntl          TxnType = "intl"
	TxTypeDeposit       TxnType = "deposit"
	TxTypeWithdrawal    TxnType = "withdrawal"
)

// Action discriminates money-movement records from peer transfers.
type Action string

const (
	ActionNone       Action = ""
	ActionDeposit    Action = "deposit"
	ActionWithdrawal Action = "withdrawal"
)

// Kind identifies which queue an approvable item belongs to.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindTransfer   Kind = "transfer"
)

// Roles carried in auth tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultStateKey is the key the whole ledger snapshot is stored under.
const DefaultStateKey = "app_state"

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTransfer reports whether t is a peer transfer type.
func (t TxnType) IsTransfer() bool {
	switch t {
	case TxTypeLocal, TxTypeInternational, TxTypeIntl:
		return true
	}
	return false
}

// IsInternational treats the short and long spellings the same way.
func (t TxnType) IsInternational() bool {
	return t == TxTypeInternational || t == TxTypeIntl
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer:
		return true
	}
	return false
}

// KindForAction maps a transaction action to its approval kind.
func KindForAction(a Action) Kind {
	switch a {
	case ActionDeposit:
		return KindDeposit
	case ActionWithdrawal:
		return KindWithdrawal
	default:
		return KindTransfer
	}
}
