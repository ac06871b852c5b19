package model

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Actor is the caller identity handed down by the access layer.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsOperator is true for admins and staff.
func (a Actor) IsOperator() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}

// SystemActor is used by background workers.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}
