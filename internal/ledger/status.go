package ledger

import (
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
)

var statusTransitions = map[domain.Status]map[domain.Status]struct{}{
	domain.StatusPending: {
		domain.StatusApproved: {},
		domain.StatusRejected: {},
	},
	domain.StatusApproved: {},
	domain.StatusRejected: {},
}

// CanTransition reports whether an item may move from current to next.
// Approved and rejected are terminal.
func CanTransition(current, next domain.Status) bool {
	nextStates, ok := statusTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

func checkTransition(kind domain.Kind, id string, current, next domain.Status) error {
	if !next.Valid() || next == domain.StatusPending {
		return fmt.Errorf("%w: unsupported target status %q", ErrInvalidCommand, next)
	}
	if !CanTransition(current, next) {
		return &AlreadyProcessedError{Kind: kind, ID: id, Status: current}
	}
	return nil
}
