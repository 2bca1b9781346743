package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "member read", role: RoleMember, action: ActionRead, allow: true},
		{name: "member post", role: RoleMember, action: ActionPost, allow: true},
		{name: "member react", role: RoleMember, action: ActionReact, allow: true},
		{name: "member manage channels", role: RoleMember, action: ActionManageChannels, allow: false},
		{name: "member manage members", role: RoleMember, action: ActionManageMembers, allow: false},
		{name: "member manage workspace", role: RoleMember, action: ActionManageWorkspace, allow: false},
		{name: "admin manage workspace", role: RoleAdmin, action: ActionManageWorkspace, allow: true},
		{name: "admin manage channels", role: RoleAdmin, action: ActionManageChannels, allow: true},
		{name: "unknown role read", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin should normalize to RoleAdmin")
	}
	if Normalize("") != RoleMember {
		t.Fatal("empty role should normalize to RoleMember")
	}
	if Normalize("owner") != RoleMember {
		t.Fatal("unknown role should normalize to RoleMember")
	}
}
