package rbac

import (
	"fmt"
)

// Checker answers permission and ownership questions against a validated
// Config. It holds no mutable state and is safe for concurrent use.
type Checker struct {
	config     Config
	roleIndex  map[Role]int
	grants     map[Role]map[Permission]bool
	validPerms map[Permission]bool
	validRoles map[Role]bool
}

// New creates a Checker from a validated Config
func New(cfg Config) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &Checker{config: cfg}
	rc.buildLookups()
	return rc, nil
}

// MustNew creates a Checker and panics on invalid config
func MustNew(cfg Config) *Checker {
	rc, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return rc
}

func (rc *Checker) buildLookups() {
	cfg := rc.config

	rc.roleIndex = make(map[Role]int, len(cfg.Roles))
	rc.validRoles = make(map[Role]bool, len(cfg.Roles))
	for _, rd := range cfg.Roles {
		rc.roleIndex[rd.Name] = rd.Level
		rc.validRoles[rd.Name] = true
	}

	rc.grants = make(map[Role]map[Permission]bool, len(cfg.Grants))
	for role, perms := range cfg.Grants {
		rc.grants[role] = make(map[Permission]bool, len(perms))
		for _, p := range perms {
			rc.grants[role][p] = true
		}
	}

	rc.validPerms = make(map[Permission]bool, len(cfg.Permissions))
	for _, p := range cfg.Permissions {
		rc.validPerms[p] = true
	}
}

// HasPermission reports whether role was granted perm.
func (rc *Checker) HasPermission(role Role, perm Permission) bool {
	return rc.grants[role][perm]
}

// Authorize requires role to hold perm.
func (rc *Checker) Authorize(role Role, perm Permission) error {
	if role == "" {
		return fmt.Errorf("%w: %s", ErrDenied, errDeniedRoleEmpty)
	}
	if !rc.HasPermission(role, perm) {
		return fmt.Errorf("%w: "+errDeniedMissingPermissionFmt, ErrDenied, role, perm)
	}
	return nil
}

// AuthorizeAny requires role to hold at least one of perms.
func (rc *Checker) AuthorizeAny(role Role, perms ...Permission) error {
	if role == "" {
		return fmt.Errorf("%w: %s", ErrDenied, errDeniedRoleEmpty)
	}
	for _, p := range perms {
		if rc.HasPermission(role, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: "+errDeniedMissingAnyPermissionFmt, ErrDenied, role, perms)
}

// AuthorizeAll requires role to hold every one of perms.
func (rc *Checker) AuthorizeAll(role Role, perms ...Permission) error {
	for _, p := range perms {
		if err := rc.Authorize(role, p); err != nil {
			return err
		}
	}
	return nil
}

// IsAdmin reports whether role is the distinguished admin role.
func (rc *Checker) IsAdmin(role Role) bool {
	return role != "" && role == rc.config.AdminRole
}

// AuthorizeOwner requires userID to equal ownerID unless role is admin.
func (rc *Checker) AuthorizeOwner(role Role, userID, ownerID string) error {
	if rc.IsAdmin(role) {
		return nil
	}
	if userID == "" || userID != ownerID {
		return fmt.Errorf("%w: "+errDeniedNotOwnerFmt, ErrDenied, userID, ownerID)
	}
	return nil
}

// RequireRole checks the role hierarchy.
func (rc *Checker) RequireRole(role, minRole Role) error {
	if !rc.IsRoleElevated(role, minRole) {
		return fmt.Errorf("%w: "+errDeniedMinRoleRequiredFmt, ErrDenied, minRole, role)
	}
	return nil
}

// IsRoleElevated checks if role1 has equal or higher privilege than role2
func (rc *Checker) IsRoleElevated(role1, role2 Role) bool {
	level1, exists1 := rc.roleIndex[role1]
	level2, exists2 := rc.roleIndex[role2]
	if !exists1 || !exists2 {
		return false
	}
	return level1 >= level2
}

// ValidateRole validates a role string against configured roles
func (rc *Checker) ValidateRole(role string) (Role, error) {
	r := Role(role)
	if rc.validRoles[r] {
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
}

// ValidatePermissions validates an array of permissions
func (rc *Checker) ValidatePermissions(permissions []Permission) error {
	if len(permissions) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPermission, errInvalidPermissionsEmpty)
	}
	for _, perm := range permissions {
		if !rc.validPerms[perm] {
			return fmt.Errorf("%w: %s", ErrInvalidPermission, perm)
		}
	}
	return nil
}

// Permissions returns the permissions granted to role.
func (rc *Checker) Permissions(role Role) []Permission {
	granted := make([]Permission, 0, len(rc.grants[role]))
	for _, p := range rc.config.Permissions {
		if rc.grants[role][p] {
			granted = append(granted, p)
		}
	}
	return granted
}
