// Package authz holds the single access-control decision function consulted by
// every route and service. Policy outcomes depend only on the identity, the
// action and the resource descriptor, never on request state.
package authz

import "github.com/admitgate/admitgate-api/internal/models"

// Identity is the non-secret projection of an authenticated account.
type Identity struct {
	ID     uint
	Role   models.Role
	Active bool
}

// Action names an operation subject to policy.
type Action string

const (
	ActionApplicationView       Action = "application.view"
	ActionApplicationCreate     Action = "application.create"
	ActionApplicationUpdate     Action = "application.update"
	ActionApplicationSubmit     Action = "application.submit"
	ActionApplicationTransition Action = "application.transition"
	ActionDocumentAttach        Action = "document.attach"
	ActionDocumentView          Action = "document.view"
	ActionDocumentDelete        Action = "document.delete"
	ActionUserView              Action = "user.view"
	ActionUserCreate            Action = "user.create"
	ActionUserUpdate            Action = "user.update"
	ActionUserSetStatus         Action = "user.set-status"
	ActionUserDelete            Action = "user.delete"
	ActionAuditView             Action = "audit.view"
)

// ResourceType classifies the target of an action.
type ResourceType string

const (
	ResourceApplication ResourceType = "application"
	ResourceDocument    ResourceType = "document"
	ResourceUser        ResourceType = "user"
	ResourceAuditLog    ResourceType = "audit-log"
)

// Resource describes the target of a policy decision. OwnerID is the identity
// that owns the resource; for user resources it is the target user's own ID and
// TargetRole carries that user's role.
type Resource struct {
	Type       ResourceType
	OwnerID    uint
	TargetRole models.Role
}

// ApplicationResource builds the resource descriptor for an application owned
// by the given identity.
func ApplicationResource(ownerID uint) Resource {
	return Resource{Type: ResourceApplication, OwnerID: ownerID}
}

// DocumentResource builds the resource descriptor for a document; ownership
// follows the parent application.
func DocumentResource(ownerID uint) Resource {
	return Resource{Type: ResourceDocument, OwnerID: ownerID}
}

// UserResource builds the resource descriptor for a user account.
func UserResource(id uint, role models.Role) Resource {
	return Resource{Type: ResourceUser, OwnerID: id, TargetRole: role}
}

// subAdminActions is the fixed capability subset granted to sub-admins. They
// never create, delete or re-role accounts.
var subAdminActions = map[Action]struct{}{
	ActionApplicationView:       {},
	ActionApplicationTransition: {},
	ActionDocumentView:          {},
	ActionUserView:              {},
}

// ownerActions are the operations students and agents may perform on resources
// they own. Arbitrary status transitions are deliberately absent: owners may
// only submit a draft.
var ownerActions = map[Action]struct{}{
	ActionApplicationView:   {},
	ActionApplicationCreate: {},
	ActionApplicationUpdate: {},
	ActionApplicationSubmit: {},
	ActionDocumentAttach:    {},
	ActionDocumentView:      {},
	ActionDocumentDelete:    {},
}

// Can decides whether the identity may perform the action on the resource.
// Rules are evaluated in priority order; anything not explicitly granted is
// denied.
func Can(identity Identity, action Action, resource Resource) bool {
	if identity.ID == 0 || !identity.Active {
		return false
	}

	switch identity.Role {
	case models.RoleAdmin:
		// Admins cannot mutate each other. Self-service changes remain allowed.
		if resource.Type == ResourceUser && resource.TargetRole == models.RoleAdmin && resource.OwnerID != identity.ID {
			switch action {
			case ActionUserUpdate, ActionUserSetStatus, ActionUserDelete:
				return false
			}
		}
		return true
	case models.RoleSubAdmin:
		_, ok := subAdminActions[action]
		return ok
	case models.RoleAgent, models.RoleStudent:
		if resource.Type != ResourceApplication && resource.Type != ResourceDocument {
			return false
		}
		if _, ok := ownerActions[action]; !ok {
			return false
		}
		if action == ActionApplicationCreate {
			return true
		}
		return resource.OwnerID == identity.ID
	default:
		return false
	}
}
