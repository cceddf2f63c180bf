package session

import "fmt"

// Phase is the orchestrator's position in a simulation lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseInFlight   Phase = "in_flight"
	PhaseResolved   Phase = "resolved"
	PhaseFailed     Phase = "failed"
)

// IsTerminal reports whether the phase holds an outcome.
func (p Phase) IsTerminal() bool {
	return p == PhaseResolved || p == PhaseFailed
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseValidating
	case PhaseValidating:
		return to == PhaseInFlight || to == PhaseFailed
	case PhaseInFlight:
		// Idle covers a stale resolution that is discarded.
		return to == PhaseResolved || to == PhaseFailed || to == PhaseIdle
	case PhaseResolved, PhaseFailed:
		return to == PhaseValidating || to == PhaseIdle
	default:
		return false
	}
}

// transition moves the controller to next or reports an invariant violation.
// Callers hold the controller lock.
func (c *Controller) transition(next Phase) error {
	if !isAllowedTransition(c.phase, next) {
		return fmt.Errorf("disallowed phase transition %s -> %s", c.phase, next)
	}
	c.phase = next
	return nil
}
