package relax

// State is a position in the relaxation state machine:
//
//	Initialized -> Running -> Converged | IterationLimitReached | Failed
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateConverged
	StateIterationLimitReached
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateIterationLimitReached:
		return "iteration-limit-reached"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateConverged || s == StateIterationLimitReached || s == StateFailed
}
