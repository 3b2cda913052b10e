// Package permission describes role based access to billing administration.
package permission

const (
	RoleBillingAdmin = "billing_admin"
	RoleSupport      = "support"
)

const (
	ResourceOverrides    = "overrides"
	ResourceSubscription = "subscription"
)

const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

type PermissionEnforcer interface {
	Enforce(subject string, resource string, action string) (bool, error)
	AddRoleForUser(userID string, role string) error
	DeleteRoleForUser(userID string, role string) error
	GetUsersForRole(role string) ([]string, error)
	LoadPolicy() error
}
