// Package groups derives group membership from identity claims and enforces
// join access rules. The access policy lives here and nowhere else.
package groups

import (
	"strings"

	"github.com/stride-hr/presence-gateway/internal/model"
)

// Group name prefixes. A group is a derived broadcast channel, not a stored
// entity; these names are the whole of its identity.
const (
	UserPrefix         = "User_"
	BranchPrefix       = "Branch_"
	OrganizationPrefix = "Organization_"
	RolePrefix         = "Role_"
)

// UserGroup returns the personal group name for a user.
func UserGroup(userID string) string {
	return UserPrefix + userID
}

// BranchGroup returns the group name for a branch.
func BranchGroup(branchID string) string {
	return BranchPrefix + branchID
}

// OrganizationGroup returns the group name for an organization.
func OrganizationGroup(orgID string) string {
	return OrganizationPrefix + orgID
}

// RoleGroup returns the group name for a role.
func RoleGroup(role string) string {
	return RolePrefix + role
}

// ComputeDefaultGroups returns the groups a connection joins automatically:
// the personal user group always, branch and organization groups when the
// corresponding attribute is non-empty, and one role group per role claim.
func ComputeDefaultGroups(id model.Identity) []string {
	names := []string{UserGroup(id.UserID)}
	if id.BranchID != "" {
		names = append(names, BranchGroup(id.BranchID))
	}
	if id.OrganizationID != "" {
		names = append(names, OrganizationGroup(id.OrganizationID))
	}
	for _, role := range id.Roles {
		names = append(names, RoleGroup(role))
	}
	return names
}

// Policy decides whether an identity may join a requested group.
type Policy struct {
	// SuperAdminRole may join any group.
	SuperAdminRole string
}

// ValidateJoin applies the join access rules in order; the first matching
// rule wins. It is a pure function of (identity, group name).
func (p Policy) ValidateJoin(id model.Identity, group string) error {
	switch {
	case group == UserGroup(id.UserID):
		return nil
	case id.BranchID != "" && group == BranchGroup(id.BranchID):
		return nil
	case id.OrganizationID != "" && group == OrganizationGroup(id.OrganizationID):
		return nil
	case strings.HasPrefix(group, RolePrefix) && id.HasRole(strings.TrimPrefix(group, RolePrefix)):
		return nil
	case id.HasRole(p.SuperAdminRole):
		return nil
	default:
		return model.ErrAccessDenied
	}
}
