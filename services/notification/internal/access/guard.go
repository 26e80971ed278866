// Package access decides what an authenticated caller may do or see.
package access

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFleetManager Role = "fleet_manager"
	RoleDriver       Role = "driver"
	RoleViewer       Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFleetManager, RoleDriver, RoleViewer:
		return true
	}
	return false
}

// AllRoles lists every role; use it where any signed-in user is allowed.
var AllRoles = []Role{RoleAdmin, RoleFleetManager, RoleDriver, RoleViewer}

// Identity is the caller as established from a verified token.
type Identity struct {
	UserID string
	Role   Role
}

// NewIdentity returns nil when there is no user, so callers can pass the
// result straight to Authorize.
func NewIdentity(userID, role string) *Identity {
	if userID == "" {
		return nil
	}
	return &Identity{UserID: userID, Role: Role(role)}
}

type DenyReason string

const (
	DenyMissingIdentity DenyReason = "missing_identity"
	DenyRoleNotAllowed  DenyReason = "role_not_allowed"
)

// Decision is either authorized, carrying the identity, or denied with a reason.
type Decision struct {
	identity *Identity
	reason   DenyReason
}

func (d Decision) Authorized() bool {
	return d.identity != nil
}

func (d Decision) Identity() *Identity {
	return d.identity
}

func (d Decision) Reason() DenyReason {
	return d.reason
}

// Authorize admits identity when its role is one of allowed. A token whose
// role is empty or unknown does not establish an identity.
func Authorize(identity *Identity, allowed ...Role) Decision {
	if identity == nil || identity.UserID == "" || !identity.Role.Valid() {
		return Decision{reason: DenyMissingIdentity}
	}
	for _, role := range allowed {
		if identity.Role == role {
			return Decision{identity: identity}
		}
	}
	return Decision{reason: DenyRoleNotAllowed}
}
