package model

import (
	"time"
)

// Identity holds the claims supplied for a connecting principal by the
// identity provider. UserID and EmployeeID are mandatory; the tenancy
// attributes and roles are optional.
type Identity struct {
	UserID         string   `json:"userId"`
	EmployeeID     string   `json:"employeeId"`
	BranchID       string   `json:"branchId,omitempty"`
	OrganizationID string   `json:"organizationId,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}

// Validate checks that the mandatory identity attributes are present.
func (id Identity) Validate() error {
	if id.UserID == "" || id.EmployeeID == "" {
		return ErrMissingIdentity
	}
	return nil
}

// HasRole reports whether the identity holds the given role.
// Role names are matched case-sensitively.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Connection represents one live client session.
type Connection struct {
	ID          string    `json:"connectionId"`
	Identity    Identity  `json:"identity"`
	ConnectedAt time.Time `json:"connectedAt"`
	UserAgent   string    `json:"userAgent,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
}

// Duration returns how long the connection has been established.
func (c *Connection) Duration() time.Duration {
	return time.Since(c.ConnectedAt)
}
