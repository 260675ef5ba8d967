package ledger

import "github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"

// The commitment state machine:
//
//	reserved -> confirmed (terminal)
//	reserved -> cancelled (terminal)
//
// Cancelling an already-cancelled commitment is a no-op; cancelling a
// confirmed one is forbidden. These checks run against a row re-read inside
// the transition's own transaction, so concurrent transitions on the same
// commitment fail their precondition deterministically.

func confirmable(status CommitmentStatus) error {
	if status != StatusReserved {
		return apperr.BadRequest("only reserved commitments can be confirmed")
	}
	return nil
}

type cancelDecision int

const (
	cancelProceed cancelDecision = iota
	cancelNoop
)

func cancellable(status CommitmentStatus) (cancelDecision, error) {
	switch status {
	case StatusCancelled:
		return cancelNoop, nil
	case StatusConfirmed:
		return 0, apperr.Forbidden("confirmed commitments cannot be cancelled")
	default:
		return cancelProceed, nil
	}
}
