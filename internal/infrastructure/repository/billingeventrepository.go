package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
	"github.com/lexora-inc/lexora/internal/shared/db"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type BillingEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewBillingEventRepository(db *gorm.DB, logger logger.Interface) subscription.BillingEventRepository {
	return &BillingEventRepositoryImpl{db: db, logger: logger}
}

func (r *BillingEventRepositoryImpl) Record(ctx context.Context, provider vo.PaymentProvider, eventID, eventType, organizationID string, payload []byte) (bool, error) {
	model := &models.BillingEventModel{
		Provider:  provider.String(),
		EventID:   eventID,
		EventType: eventType,
	}
	if organizationID != "" {
		model.OrganizationID = &organizationID
	}
	if json.Valid(payload) {
		model.Payload = datatypes.JSON(payload)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to record billing event", "provider", provider, "event_id", eventID, "error", result.Error)
		return false, fmt.Errorf("failed to record billing event: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *BillingEventRepositoryImpl) Exists(ctx context.Context, provider vo.PaymentProvider, eventID string) (bool, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.BillingEventModel{}).
		Where("provider = ? AND event_id = ?", provider.String(), eventID).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to look up billing event", "provider", provider, "event_id", eventID, "error", err)
		return false, fmt.Errorf("failed to look up billing event: %w", err)
	}
	return count > 0, nil
}
