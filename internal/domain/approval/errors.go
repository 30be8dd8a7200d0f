// Package approval defines the engine's error taxonomy. All engine entry
// points surface one of these sentinels (possibly wrapped); callers classify
// with errors.Is.
package approval

import "errors"

var (
	// ErrNotFound is returned when the expense or company does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoCurrentStep is returned when an expense is already finalized or has no step awaiting action
	ErrNoCurrentStep = errors.New("no current approval step")

	// ErrUnauthorized is returned when the caller is not an eligible approver for the current step
	ErrUnauthorized = errors.New("user is not an eligible approver for this step")

	// ErrAlreadyDecided is returned when the caller already voted on the current step
	ErrAlreadyDecided = errors.New("approver has already decided on this step")

	// ErrValidation is returned for invalid input (missing rejection comments, malformed threshold)
	ErrValidation = errors.New("validation failed")

	// ErrForbidden is returned when the caller's role lacks company-wide visibility
	ErrForbidden = errors.New("insufficient role")

	// ErrWorkflowDeadlock marks a step whose approver pool is empty and can never be satisfied
	ErrWorkflowDeadlock = errors.New("step has no eligible approvers")
)
