package rbac

import "errors"

var (
	ErrDenied            = errors.New("authorization denied")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
)

const (
	errConfigRolesEmpty                = "rbac config: roles must not be empty"
	errConfigPermissionsEmpty          = "rbac config: permissions must not be empty"
	errConfigGrantsEmpty               = "rbac config: grants must not be empty"
	errConfigAdminRoleEmpty            = "rbac config: admin role must be set"
	errConfigAdminRoleUnknownFmt       = "rbac config: admin role %s is not a defined role"
	errConfigRoleNameEmpty             = "rbac config: role name must not be empty"
	errConfigDuplicateRoleNameFmt      = "rbac config: duplicate role name: %s"
	errConfigDuplicateRoleLevelFmt     = "rbac config: duplicate role level %d (roles %s and %s)"
	errConfigPermissionEmpty           = "rbac config: permission must not be empty"
	errConfigDuplicatePermissionFmt    = "rbac config: duplicate permission: %s"
	errConfigGrantUnknownRoleFmt       = "rbac config: grant references unknown role: %s"
	errConfigGrantUnknownPermissionFmt = "rbac config: grant for role %s references unknown permission: %s"
	errMustNewPanicFmt                 = "rbac.MustNew: %v"
	errDeniedRoleEmpty                 = "role is empty"
	errDeniedMissingPermissionFmt      = "role '%s' lacks permission '%s'"
	errDeniedMissingAnyPermissionFmt   = "role '%s' lacks all of %v"
	errDeniedMinRoleRequiredFmt        = "requires minimum role '%s', but principal has role '%s'"
	errDeniedNotOwnerFmt               = "principal '%s' does not own resource of '%s'"
	errInvalidPermissionsEmpty         = "permissions array cannot be empty"
)
