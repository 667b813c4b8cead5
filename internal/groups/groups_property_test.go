package groups

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/stride-hr/presence-gateway/internal/model"
)

// ValidateJoin is a pure function of (identity, group name): evaluating it
// twice with identical inputs always yields the same result, and allowed
// joins are exactly the ones a rule admits.
func TestValidateJoinPurityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("repeated evaluation is deterministic", prop.ForAll(
		func(userID, branchID, group string, withRole bool) bool {
			id := model.Identity{
				UserID:     userID,
				EmployeeID: "e",
				BranchID:   branchID,
			}
			if withRole {
				id.Roles = []string{"Employee"}
			}
			policy := Policy{SuperAdminRole: "SuperAdmin"}

			first := policy.ValidateJoin(id, group)
			second := policy.ValidateJoin(id, group)
			return (first == nil) == (second == nil)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("own personal group is always joinable", prop.ForAll(
		func(userID string) bool {
			id := model.Identity{UserID: userID, EmployeeID: "e"}
			policy := Policy{SuperAdminRole: "SuperAdmin"}
			return policy.ValidateJoin(id, UserGroup(userID)) == nil
		},
		gen.AlphaString(),
	))

	properties.Property("default groups are deterministic", prop.ForAll(
		func(userID, branchID, orgID string) bool {
			id := model.Identity{
				UserID:         userID,
				EmployeeID:     "e",
				BranchID:       branchID,
				OrganizationID: orgID,
				Roles:          []string{"Employee"},
			}
			first := ComputeDefaultGroups(id)
			second := ComputeDefaultGroups(id)
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
