package rbac

type Role string
type Action string

// Workspace roles. "members" is the literal stored role name for regular
// members, so the zero-value default stays compatible with stored rows.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "members"
)

const (
	ActionRead            Action = "read"
	ActionPost            Action = "post"
	ActionReact           Action = "react"
	ActionManageChannels  Action = "manage_channels"
	ActionManageMembers   Action = "manage_members"
	ActionManageWorkspace Action = "manage_workspace"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleMember:
		return action == ActionRead || action == ActionPost || action == ActionReact
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleMember:
		return Role(role)
	default:
		return RoleMember
	}
}
