package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/mappers"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
	"github.com/lexora-inc/lexora/internal/shared/db"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

// amountExpr treats a NULL amount as one unit so summing and counting agree
// for records that carry no quantity.
const amountExpr = "COALESCE(SUM(COALESCE(amount, 1)), 0)"

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.UsageRecordMapper
	logger logger.Interface
}

func NewUsageRepository(db *gorm.DB, logger logger.Interface) subscription.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mappers.NewUsageRecordMapper(),
		logger: logger,
	}
}

func (r *UsageRepositoryImpl) Create(ctx context.Context, record *subscription.UsageRecord) error {
	model, err := r.mapper.ToModel(record)
	if err != nil {
		return fmt.Errorf("failed to map usage record: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create usage record",
			"subscription_id", record.SubscriptionID(),
			"type", record.Type(),
			"error", err,
		)
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return record.SetID(model.ID)
}

func (r *UsageRepositoryImpl) inPeriod(ctx context.Context, subscriptionID uint, period biztime.Period) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db).
		Model(&models.UsageRecordModel{}).
		Where("subscription_id = ?", subscriptionID).
		Where("created_at >= ? AND created_at <= ?", period.Start.UTC(), period.End.UTC())
}

func (r *UsageRepositoryImpl) Aggregate(ctx context.Context, subscriptionID uint, usageType subscription.UsageType, agg subscription.Aggregation, period biztime.Period) (int64, error) {
	query := r.inPeriod(ctx, subscriptionID, period).Where("type = ?", string(usageType))

	var total int64
	var err error
	switch agg {
	case subscription.AggregateSum:
		err = query.Select(amountExpr).Scan(&total).Error
	default:
		err = query.Count(&total).Error
	}
	if err != nil {
		r.logger.Errorw("failed to aggregate usage",
			"subscription_id", subscriptionID,
			"type", usageType,
			"error", err,
		)
		return 0, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return total, nil
}

func (r *UsageRepositoryImpl) Totals(ctx context.Context, subscriptionID uint, period biztime.Period) (map[subscription.UsageType]subscription.UsageTotal, error) {
	var rows []struct {
		Type   string
		Count  int64
		Amount int64
	}
	err := r.inPeriod(ctx, subscriptionID, period).
		Select("type, COUNT(*) AS count, " + amountExpr + " AS amount").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		r.logger.Errorw("failed to total usage", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to total usage: %w", err)
	}

	out := make(map[subscription.UsageType]subscription.UsageTotal, len(rows))
	for _, row := range rows {
		t := subscription.UsageType(row.Type)
		out[t] = subscription.UsageTotal{Type: t, Count: row.Count, Amount: row.Amount}
	}
	return out, nil
}

func (r *UsageRepositoryImpl) ListInPeriod(ctx context.Context, subscriptionID uint, period biztime.Period, limit int) ([]*subscription.UsageRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.UsageRecordModel
	if err := r.inPeriod(ctx, subscriptionID, period).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list usage records", "subscription_id", subscriptionID, "error", err)
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return r.mapper.ToEntities(rows)
}
