package tracker

import "github.com/nhoon2002/Next-Replicate/internal/domain"

// State is the client-side projection of a remote prediction.
type State int

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
	StateTransportError
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further status queries may be issued.
func (s State) Terminal() bool {
	return s != StatePending
}

// Classify maps a remote status onto the local state set. Only succeeded and
// failed are terminal; every other status, canceled included, stays pending.
func Classify(status domain.PredictionStatus) State {
	switch status {
	case domain.PredictionStatusSucceeded:
		return StateSucceeded
	case domain.PredictionStatusFailed:
		return StateFailed
	default:
		return StatePending
	}
}

// Next is the transition function. queryErr is the outcome of the status
// query that produced snap. Terminal states absorb.
func Next(current State, snap *domain.Prediction, queryErr error) State {
	if current.Terminal() {
		return current
	}
	if queryErr != nil || snap == nil {
		return StateTransportError
	}
	return Classify(snap.Status)
}
