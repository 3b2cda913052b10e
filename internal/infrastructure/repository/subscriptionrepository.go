package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/mappers"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
	"github.com/lexora-inc/lexora/internal/shared/db"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("id = ?", id), "id", id)
}

func (r *SubscriptionRepositoryImpl) GetByOrganizationID(ctx context.Context, organizationID string) (*subscription.Subscription, error) {
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("organization_id = ?", organizationID), "organization_id", organizationID)
}

func (r *SubscriptionRepositoryImpl) GetOrCreate(ctx context.Context, organizationID string) (*subscription.Subscription, error) {
	existing, err := r.GetByOrganizationID(ctx, organizationID)
	if err != nil || existing != nil {
		return existing, err
	}

	entity, err := subscription.NewSubscription(organizationID)
	if err != nil {
		return nil, err
	}
	model := r.mapper.ToModel(entity)

	// A concurrent insert for the same organization wins; we read its row.
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "organization_id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create subscription", "organization_id", organizationID, "error", result.Error)
		return nil, fmt.Errorf("failed to create subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return r.GetByOrganizationID(ctx, organizationID)
	}

	if err := entity.SetID(model.ID); err != nil {
		return nil, fmt.Errorf("failed to set subscription ID: %w", err)
	}
	r.logger.Infow("subscription created", "id", model.ID, "organization_id", organizationID)
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) LockByOrganizationID(ctx context.Context, organizationID string) (*subscription.Subscription, error) {
	if _, err := r.GetOrCreate(ctx, organizationID); err != nil {
		return nil, err
	}
	tx := db.ForUpdate(ctx, db.GetTxFromContext(ctx, r.db))
	return r.first(ctx, tx.Where("organization_id = ?", organizationID), "organization_id", organizationID)
}

func (r *SubscriptionRepositoryImpl) GetByProviderSubscriptionID(ctx context.Context, provider vo.PaymentProvider, subscriptionID string) (*subscription.Subscription, error) {
	column, err := providerColumn(provider, false)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where(column+" = ?", subscriptionID), column, subscriptionID)
}

func (r *SubscriptionRepositoryImpl) GetByProviderCustomerID(ctx context.Context, provider vo.PaymentProvider, customerID string) (*subscription.Subscription, error) {
	column, err := providerColumn(provider, true)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where(column+" = ?", customerID), column, customerID)
}

// Update writes every column, including NULL overrides, guarded by the
// optimistic version.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, entity *subscription.Subscription) error {
	model := r.mapper.ToModel(entity)
	expected := model.Version
	model.Version = expected + 1

	result := db.GetTxFromContext(ctx, r.db).
		Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warnw("subscription version conflict", "id", model.ID, "version", expected)
		return subscription.ErrVersionConflict
	}

	entity.IncrementVersion()
	r.logger.Infow("subscription updated",
		"id", model.ID,
		"organization_id", model.OrganizationID,
		"plan", model.Plan,
		"status", model.Status,
	)
	return nil
}

func (r *SubscriptionRepositoryImpl) first(ctx context.Context, query *gorm.DB, field string, value any) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription", field, value, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map subscription model to entity", "id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}
	return entity, nil
}

func providerColumn(provider vo.PaymentProvider, customer bool) (string, error) {
	switch provider {
	case vo.ProviderStripe:
		if customer {
			return "stripe_customer_id", nil
		}
		return "stripe_subscription_id", nil
	case vo.ProviderPolar:
		if customer {
			return "polar_customer_id", nil
		}
		return "polar_subscription_id", nil
	case vo.ProviderPaystack:
		if customer {
			return "paystack_customer_code", nil
		}
		return "paystack_subscription_code", nil
	}
	return "", fmt.Errorf("%w: %s", subscription.ErrInvalidProvider, provider)
}
