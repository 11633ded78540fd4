package rbac_test

import (
	"strings"
	"testing"

	"auth-gateway/internal/rbac"
	"auth-gateway/internal/rbac/presets"
)

func validBaseConfig() rbac.Config {
	return rbac.Config{
		Roles:       []rbac.RoleDefinition{{Name: "admin", Level: 2}, {Name: "user", Level: 1}},
		Permissions: []rbac.Permission{"read", "write"},
		Grants: map[rbac.Role][]rbac.Permission{
			"admin": {"read", "write"},
			"user":  {"read"},
		},
		AdminRole: "admin",
	}
}

func TestValidatePreset(t *testing.T) {
	cfg := presets.Gateway()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Gateway preset should be valid: %v", err)
	}
}

func TestValidateBaseConfig(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rbac.Config)
		want   string
	}{
		{"empty roles", func(c *rbac.Config) { c.Roles = nil }, "roles must not be empty"},
		{"empty permissions", func(c *rbac.Config) { c.Permissions = nil }, "permissions must not be empty"},
		{"empty grants", func(c *rbac.Config) { c.Grants = nil }, "grants must not be empty"},
		{"missing admin role", func(c *rbac.Config) { c.AdminRole = "" }, "admin role must be set"},
		{"unknown admin role", func(c *rbac.Config) { c.AdminRole = "root" }, "admin role root"},
		{"empty role name", func(c *rbac.Config) { c.Roles = append(c.Roles, rbac.RoleDefinition{Level: 9}) }, "role name must not be empty"},
		{"duplicate role name", func(c *rbac.Config) { c.Roles = append(c.Roles, rbac.RoleDefinition{Name: "user", Level: 9}) }, "duplicate role name"},
		{"duplicate role level", func(c *rbac.Config) { c.Roles = append(c.Roles, rbac.RoleDefinition{Name: "guest", Level: 1}) }, "duplicate role level"},
		{"empty permission", func(c *rbac.Config) { c.Permissions = append(c.Permissions, "") }, "permission must not be empty"},
		{"duplicate permission", func(c *rbac.Config) { c.Permissions = append(c.Permissions, "read") }, "duplicate permission"},
		{"grant unknown role", func(c *rbac.Config) { c.Grants["ghost"] = []rbac.Permission{"read"} }, "unknown role: ghost"},
		{"grant unknown permission", func(c *rbac.Config) { c.Grants["user"] = []rbac.Permission{"delete"} }, "unknown permission: delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}
