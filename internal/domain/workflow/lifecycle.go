package workflow

// NewLifecycle builds the expense lifecycle machine positioned at the given
// status. The advancer's "no next step" branch is the only path firing
// TriggerFinalApprove; TriggerAutoApprove covers the empty-workflow case at
// initialization. Edits are self-transitions so the submitter can keep
// revising a pending or rejected expense without moving the workflow cursor.
func NewLifecycle(status string) StateMachine {
	b := NewBuilder()

	b.Configure(StatePending).
		Permit(TriggerFinalApprove, StateApproved).
		Permit(TriggerAutoApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerEdit, StatePending)

	b.Configure(StateRejected).
		Permit(TriggerEdit, StateRejected)

	state := State(status)
	if !state.IsValid() {
		state = StatePending
	}
	return b.Build(state)
}
