package migration

import (
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists the tables owned by this service. casbin_rule is
// created by the casbin adapter itself.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SubscriptionModel{},
		&models.UsageRecordModel{},
		&models.BillingEventModel{},
	}
}
