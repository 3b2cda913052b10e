package permission

import (
	"fmt"

	"github.com/lexora-inc/lexora/internal/domain/permission"
)

var billingPolicies = [][]string{
	{permission.RoleBillingAdmin, permission.ResourceOverrides, permission.ActionRead},
	{permission.RoleBillingAdmin, permission.ResourceOverrides, permission.ActionWrite},
	{permission.RoleBillingAdmin, permission.ResourceOverrides, permission.ActionDelete},
	{permission.RoleBillingAdmin, permission.ResourceSubscription, permission.ActionRead},

	{permission.RoleSupport, permission.ResourceOverrides, permission.ActionRead},
	{permission.RoleSupport, permission.ResourceSubscription, permission.ActionRead},
}

// Sync installs the billing role policies and makes the billing admin role
// membership match admins exactly. It is idempotent.
func (e *Enforcer) Sync(admins []string) error {
	if err := e.addPolicies(billingPolicies); err != nil {
		return fmt.Errorf("failed to sync billing policies: %w", err)
	}

	current, err := e.GetUsersForRole(permission.RoleBillingAdmin)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(admins))
	for _, id := range admins {
		if id != "" {
			wanted[id] = true
		}
	}

	granted, revoked := 0, 0
	for _, id := range current {
		if wanted[id] {
			delete(wanted, id)
			continue
		}
		if err := e.DeleteRoleForUser(id, permission.RoleBillingAdmin); err != nil {
			return err
		}
		revoked++
	}
	for id := range wanted {
		if err := e.AddRoleForUser(id, permission.RoleBillingAdmin); err != nil {
			return err
		}
		granted++
	}

	if granted > 0 || revoked > 0 {
		e.logger.Infow("billing admin role synced", "granted", granted, "revoked", revoked)
	}
	return nil
}
