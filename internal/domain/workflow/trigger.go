package workflow

// Trigger represents an event that can cause a lifecycle transition
type Trigger string

const (
	// TriggerFinalApprove fires when the last approval step is satisfied
	TriggerFinalApprove Trigger = "FINAL_APPROVE"

	// TriggerReject fires when any current step is rejected
	TriggerReject Trigger = "REJECT"

	// TriggerEdit fires when the submitter modifies the expense
	TriggerEdit Trigger = "EDIT"

	// TriggerAutoApprove fires when initialization finds no steps to create
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
