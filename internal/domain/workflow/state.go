package workflow

// State represents an expense lifecycle state
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

var validStates = map[State]bool{
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state. Rejection is
// terminal for the workflow cursor, but a rejected expense may still be
// edited by its submitter (see TriggerEdit).
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
