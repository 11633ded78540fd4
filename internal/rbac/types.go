package rbac

// Role represents a principal's role (hierarchical)
type Role string

// Permission represents a single capability a role may be granted
type Permission string

// RoleDefinition defines a role and its privilege level
type RoleDefinition struct {
	Name  Role
	Level int
}
