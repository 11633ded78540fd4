package rbac

import "fmt"

// Config is the static permission grant table. It is immutable once a
// Checker has been built from it.
type Config struct {
	Roles       []RoleDefinition
	Permissions []Permission
	Grants      map[Role][]Permission
	// AdminRole bypasses ownership checks unconditionally.
	AdminRole Role
}

// Validate checks internal consistency of the Config
func (c *Config) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Permissions) == 0 {
		return fmt.Errorf(errConfigPermissionsEmpty)
	}
	if len(c.Grants) == 0 {
		return fmt.Errorf(errConfigGrantsEmpty)
	}
	if c.AdminRole == "" {
		return fmt.Errorf(errConfigAdminRoleEmpty)
	}

	roleNames := make(map[Role]bool, len(c.Roles))
	roleLevels := make(map[int]Role, len(c.Roles))
	for _, rd := range c.Roles {
		if rd.Name == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if roleNames[rd.Name] {
			return fmt.Errorf(errConfigDuplicateRoleNameFmt, rd.Name)
		}
		if existing, dup := roleLevels[rd.Level]; dup {
			return fmt.Errorf(errConfigDuplicateRoleLevelFmt, rd.Level, existing, rd.Name)
		}
		roleNames[rd.Name] = true
		roleLevels[rd.Level] = rd.Name
	}

	if !roleNames[c.AdminRole] {
		return fmt.Errorf(errConfigAdminRoleUnknownFmt, c.AdminRole)
	}

	permSet := make(map[Permission]bool, len(c.Permissions))
	for _, p := range c.Permissions {
		if p == "" {
			return fmt.Errorf(errConfigPermissionEmpty)
		}
		if permSet[p] {
			return fmt.Errorf(errConfigDuplicatePermissionFmt, p)
		}
		permSet[p] = true
	}

	for role, perms := range c.Grants {
		if !roleNames[role] {
			return fmt.Errorf(errConfigGrantUnknownRoleFmt, role)
		}
		for _, p := range perms {
			if !permSet[p] {
				return fmt.Errorf(errConfigGrantUnknownPermissionFmt, role, p)
			}
		}
	}

	return nil
}
