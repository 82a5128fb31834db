package rbac

import (
	"strings"

	"pcrm/api/internal/lifecycle"
)

type Role string
type Action string

const (
	RoleCallOperator   Role = "CALL_OPERATOR"
	RoleOfficer        Role = "OFFICER"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleAdmin          Role = "ADMIN"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionUpdateStatus Action = "update_status"
	ActionAssign       Action = "assign"
	ActionConfigure    Action = "configure"
	ActionDelete       Action = "delete"
)

var ranks = map[Role]int{
	RoleCallOperator:   1,
	RoleOfficer:        2,
	RoleDepartmentHead: 3,
	RoleAdmin:          4,
	RoleSuperAdmin:     5,
}

// Rank orders roles; unknown roles rank 0.
func Rank(role Role) int {
	return ranks[role]
}

// AtLeast reports whether role ranks at or above min.
func AtLeast(role, min Role) bool {
	r := Rank(role)
	return r > 0 && r >= Rank(min)
}

func Can(role Role, action Action) bool {
	switch action {
	case ActionRead, ActionCreate:
		return AtLeast(role, RoleCallOperator)
	case ActionUpdateStatus:
		return AtLeast(role, RoleOfficer)
	case ActionAssign:
		return AtLeast(role, RoleDepartmentHead)
	case ActionConfigure, ActionDelete:
		return AtLeast(role, RoleAdmin)
	default:
		return false
	}
}

// transitionFloor is the lowest role allowed to move a complaint into a
// status. OPEN is absent: only intake produces it.
var transitionFloor = map[lifecycle.Status]Role{
	lifecycle.StatusAssigned:   RoleDepartmentHead,
	lifecycle.StatusInProgress: RoleOfficer,
	lifecycle.StatusEscalated:  RoleOfficer,
	lifecycle.StatusResolved:   RoleOfficer,
	lifecycle.StatusClosed:     RoleDepartmentHead,
}

// CanTransition is the role filter applied on top of the lifecycle topology.
func CanTransition(role Role, to lifecycle.Status) bool {
	floor, ok := transitionFloor[to]
	if !ok {
		return false
	}
	return AtLeast(role, floor)
}

// AllowedTransitions filters the structurally legal next statuses down to
// the ones role may invoke.
func AllowedTransitions(role Role, current lifecycle.Status) []lifecycle.Status {
	next := lifecycle.ValidNextStatuses(current)
	allowed := make([]lifecycle.Status, 0, len(next))
	for _, status := range next {
		if CanTransition(role, status) {
			allowed = append(allowed, status)
		}
	}
	return allowed
}

func Normalize(role string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(role)))
	if _, ok := ranks[r]; ok {
		return r
	}
	return RoleCallOperator
}
