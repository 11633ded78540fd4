package presets

import "auth-gateway/internal/rbac"

const (
	RoleAdmin    rbac.Role = "admin"
	RoleStaff    rbac.Role = "staff"
	RoleCustomer rbac.Role = "customer"
	RoleService  rbac.Role = "service"

	PermissionBookingsRead  rbac.Permission = "bookings:read"
	PermissionBookingsWrite rbac.Permission = "bookings:write"
	PermissionQuotesRead    rbac.Permission = "quotes:read"
	PermissionQuotesWrite   rbac.Permission = "quotes:write"
	PermissionPaymentsRead  rbac.Permission = "payments:read"
	PermissionPaymentsWrite rbac.Permission = "payments:write"
	PermissionChatRead      rbac.Permission = "chat:read"
	PermissionChatWrite     rbac.Permission = "chat:write"
	PermissionUsersRead     rbac.Permission = "users:read"
	PermissionUsersManage   rbac.Permission = "users:manage"
	PermissionContentManage rbac.Permission = "content:manage"
)

// Gateway returns the grant table for the booking platform behind the
// gateway. Service is the role handed to API-key clients.
func Gateway() rbac.Config {
	return rbac.Config{
		Roles: []rbac.RoleDefinition{
			{Name: RoleAdmin, Level: 4},
			{Name: RoleStaff, Level: 3},
			{Name: RoleCustomer, Level: 2},
			{Name: RoleService, Level: 1},
		},
		Permissions: []rbac.Permission{
			PermissionBookingsRead,
			PermissionBookingsWrite,
			PermissionQuotesRead,
			PermissionQuotesWrite,
			PermissionPaymentsRead,
			PermissionPaymentsWrite,
			PermissionChatRead,
			PermissionChatWrite,
			PermissionUsersRead,
			PermissionUsersManage,
			PermissionContentManage,
		},
		Grants: map[rbac.Role][]rbac.Permission{
			RoleAdmin: {
				PermissionBookingsRead, PermissionBookingsWrite,
				PermissionQuotesRead, PermissionQuotesWrite,
				PermissionPaymentsRead, PermissionPaymentsWrite,
				PermissionChatRead, PermissionChatWrite,
				PermissionUsersRead, PermissionUsersManage,
				PermissionContentManage,
			},
			RoleStaff: {
				PermissionBookingsRead, PermissionBookingsWrite,
				PermissionQuotesRead, PermissionQuotesWrite,
				PermissionPaymentsRead,
				PermissionChatRead, PermissionChatWrite,
				PermissionUsersRead,
				PermissionContentManage,
			},
			RoleCustomer: {
				PermissionBookingsRead, PermissionBookingsWrite,
				PermissionQuotesRead, PermissionQuotesWrite,
				PermissionPaymentsRead, PermissionPaymentsWrite,
				PermissionChatRead, PermissionChatWrite,
			},
			RoleService: {
				PermissionBookingsRead,
				PermissionQuotesRead,
				PermissionPaymentsRead,
			},
		},
		AdminRole: RoleAdmin,
	}
}
