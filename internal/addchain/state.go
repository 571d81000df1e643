package addchain

// State is a step of a single add-chain request. Requests only move
// forward and end in Succeeded or Failed.
type State int

const (
	StateValidating State = iota
	StateCheckingDuplicates
	StateAwaitingApproval
	StateCommitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateCheckingDuplicates:
		return "checking_duplicates"
	case StateAwaitingApproval:
		return "awaiting_approval"
	case StateCommitting:
		return "committing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
