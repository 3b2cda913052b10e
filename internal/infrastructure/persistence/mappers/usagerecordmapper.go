package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
)

type UsageRecordMapper interface {
	ToEntity(model *models.UsageRecordModel) (*subscription.UsageRecord, error)
	ToModel(entity *subscription.UsageRecord) (*models.UsageRecordModel, error)
	ToEntities(models []models.UsageRecordModel) ([]*subscription.UsageRecord, error)
}

type UsageRecordMapperImpl struct{}

func NewUsageRecordMapper() UsageRecordMapper {
	return &UsageRecordMapperImpl{}
}

func (m *UsageRecordMapperImpl) ToEntity(model *models.UsageRecordModel) (*subscription.UsageRecord, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]any
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal usage metadata: %w", err)
		}
	}

	return subscription.ReconstructUsageRecord(
		model.ID,
		model.PublicID,
		model.SubscriptionID,
		subscription.UsageType(model.Type),
		model.Amount,
		deref(model.ResourceType),
		deref(model.ResourceID),
		model.PeriodStart,
		model.PeriodEnd,
		metadata,
		model.CreatedAt,
	), nil
}

func (m *UsageRecordMapperImpl) ToModel(entity *subscription.UsageRecord) (*models.UsageRecordModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadata datatypes.JSON
	if len(entity.Metadata()) > 0 {
		raw, err := json.Marshal(entity.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal usage metadata: %w", err)
		}
		metadata = datatypes.JSON(raw)
	}

	return &models.UsageRecordModel{
		ID:             entity.ID(),
		PublicID:       entity.PublicID(),
		SubscriptionID: entity.SubscriptionID(),
		Type:           string(entity.Type()),
		Amount:         entity.Amount(),
		ResourceType:   ptr(entity.ResourceType()),
		ResourceID:     ptr(entity.ResourceID()),
		PeriodStart:    entity.PeriodStart(),
		PeriodEnd:      entity.PeriodEnd(),
		Metadata:       metadata,
		CreatedAt:      entity.CreatedAt(),
	}, nil
}

func (m *UsageRecordMapperImpl) ToEntities(rows []models.UsageRecordModel) ([]*subscription.UsageRecord, error) {
	out := make([]*subscription.UsageRecord, 0, len(rows))
	for i := range rows {
		entity, err := m.ToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
