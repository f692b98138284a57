package planner

// State is a step of the planning loop
type State int

const (
	StateIdle State = iota
	StateGeneratingInitial
	StateValidating
	StateAdjustingIntelligently
	StateAccepted
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGeneratingInitial:
		return "generating_initial"
	case StateValidating:
		return "validating"
	case StateAdjustingIntelligently:
		return "adjusting_intelligently"
	case StateAccepted:
		return "accepted"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the loop stops in this state
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateExhausted
}
