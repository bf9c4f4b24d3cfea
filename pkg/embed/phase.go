package embed

import "fmt"

// Phase is the optimizer state.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseEarlyExaggeration
	PhaseAnnealing
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseEarlyExaggeration:
		return "early_exaggeration"
	case PhaseAnnealing:
		return "annealing"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// StopReason records why the optimizer terminated.
type StopReason int

const (
	StopBudget    StopReason = iota // MaxIter reached
	StopEarly                       // cost plateau
	StopCancelled                   // context done
)

func (s StopReason) String() string {
	switch s {
	case StopBudget:
		return "budget"
	case StopEarly:
		return "early_stop"
	case StopCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("StopReason(%d)", int(s))
	}
}

// schedule returns the phase, exaggeration and momentum of iteration it.
func schedule(it, earlyExag int, alpha float64) (Phase, float64, float64) {
	if it < earlyExag {
		return PhaseEarlyExaggeration, alpha, momentumEarly
	}
	return PhaseAnnealing, 1, momentumLate
}
