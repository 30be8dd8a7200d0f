package entity

import "time"

// User is a company roster entry, provided read-only by the roster
// collaborator. Role strings drive approver-pool resolution.
type User struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ManagerID *int64    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Roles with company-wide visibility over pending approvals.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
)

// HasCompanyView reports whether the role may read company-wide approval
// queues.
func HasCompanyView(role string) bool {
	return role == RoleAdmin || role == RoleManager
}

// Company groups users, expenses and approval rules.
type Company struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
}
