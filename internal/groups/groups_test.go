package groups

import (
	"errors"
	"testing"

	"github.com/stride-hr/presence-gateway/internal/model"
)

func fullIdentity() model.Identity {
	return model.Identity{
		UserID:         "42",
		EmployeeID:     "7",
		BranchID:       "3",
		OrganizationID: "9",
		Roles:          []string{"Employee", "Manager"},
	}
}

func TestComputeDefaultGroups(t *testing.T) {
	got := ComputeDefaultGroups(fullIdentity())
	want := []string{"User_42", "Branch_3", "Organization_9", "Role_Employee", "Role_Manager"}

	if len(got) != len(want) {
		t.Fatalf("expected %d groups, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestComputeDefaultGroupsSkipsEmptyAttributes(t *testing.T) {
	id := model.Identity{UserID: "42", EmployeeID: "7"}
	got := ComputeDefaultGroups(id)

	if len(got) != 1 || got[0] != "User_42" {
		t.Errorf("expected only the personal group, got %v", got)
	}
}

func TestValidateJoinRuleOrder(t *testing.T) {
	policy := Policy{SuperAdminRole: "SuperAdmin"}
	id := fullIdentity()

	cases := []struct {
		name  string
		group string
		allow bool
	}{
		{"own user group", "User_42", true},
		{"other user group", "User_99", false},
		{"own branch group", "Branch_3", true},
		{"other branch group", "Branch_4", false},
		{"own organization group", "Organization_9", true},
		{"other organization group", "Organization_1", false},
		{"held role group", "Role_Manager", true},
		{"unheld role group", "Role_SuperAdmin", false},
		{"role match is case-sensitive", "Role_manager", false},
		{"arbitrary group", "Announcements", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.ValidateJoin(id, tc.group)
			if tc.allow && err != nil {
				t.Errorf("expected allow for %s, got %v", tc.group, err)
			}
			if !tc.allow && !errors.Is(err, model.ErrAccessDenied) {
				t.Errorf("expected ErrAccessDenied for %s, got %v", tc.group, err)
			}
		})
	}
}

func TestValidateJoinWithoutTenancy(t *testing.T) {
	policy := Policy{SuperAdminRole: "SuperAdmin"}
	id := model.Identity{UserID: "42", EmployeeID: "7"}

	// No branch claim: even a branch-looking name is denied.
	if err := policy.ValidateJoin(id, "Branch_"); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("expected denial for branch group without branch claim, got %v", err)
	}
	if err := policy.ValidateJoin(id, "Organization_"); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("expected denial for organization group without org claim, got %v", err)
	}
}

func TestSuperAdminOverridesDenials(t *testing.T) {
	policy := Policy{SuperAdminRole: "SuperAdmin"}
	admin := model.Identity{
		UserID:     "1",
		EmployeeID: "1",
		Roles:      []string{"SuperAdmin"},
	}

	for _, group := range []string{"User_99", "Branch_7", "Organization_2", "Role_Payroll", "AdHoc"} {
		if err := policy.ValidateJoin(admin, group); err != nil {
			t.Errorf("expected super admin to join %s, got %v", group, err)
		}
	}
}
