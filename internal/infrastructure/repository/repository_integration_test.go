package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
	"github.com/lexora-inc/lexora/internal/shared/db"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.SubscriptionModel{},
		&models.UsageRecordModel{},
		&models.BillingEventModel{},
	))
	return gdb
}

func TestSubscriptionRepository_GetOrCreate(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNop())
	ctx := context.Background()

	missing, err := repo.GetByOrganizationID(ctx, "org_1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first, err := repo.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)
	require.NotZero(t, first.ID())
	assert.Equal(t, plan.TierFree, first.Plan())
	assert.Equal(t, vo.StatusActive, first.Status())

	second, err := repo.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	var count int64
	require.NoError(t, gdb.Model(&models.SubscriptionModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubscriptionRepository_UpdateRoundTripsOverrides(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNop())
	ctx := context.Background()

	sub, err := repo.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)
	require.NoError(t, sub.GrantOverrides(subscription.Overrides{
		Limits:   map[plan.LimitKey]int64{plan.LimitDocuments: 1000},
		Features: map[plan.FeatureKey]bool{plan.FeatureMatters: true},
	}))
	require.NoError(t, repo.Update(ctx, sub))
	assert.Equal(t, 2, sub.Version())

	loaded, err := repo.GetByOrganizationID(ctx, "org_1")
	require.NoError(t, err)
	got, ok := loaded.Overrides().Limit(plan.LimitDocuments)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), got)
	_, ok = loaded.Overrides().Limit(plan.LimitAiTokens)
	assert.False(t, ok)

	loaded.ClearOverrides()
	require.NoError(t, repo.Update(ctx, loaded))

	cleared, err := repo.GetByID(ctx, loaded.ID())
	require.NoError(t, err)
	assert.True(t, cleared.Overrides().IsEmpty(), "cleared overrides are written back as NULL")
}

func TestSubscriptionRepository_VersionConflict(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNop())
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)
	a, err := repo.GetByOrganizationID(ctx, "org_1")
	require.NoError(t, err)
	b, err := repo.GetByOrganizationID(ctx, "org_1")
	require.NoError(t, err)

	a.Cancel(time.Now())
	require.NoError(t, repo.Update(ctx, a))

	b.ClearOverrides()
	assert.ErrorIs(t, repo.Update(ctx, b), subscription.ErrVersionConflict)
}

func TestSubscriptionRepository_ProviderLookups(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNop())
	ctx := context.Background()

	sub, err := repo.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)
	require.NoError(t, sub.ApplyProviderState(subscription.ProviderState{
		Provider:       vo.ProviderPaystack,
		Plan:           plan.TierPro,
		Status:         vo.StatusActive,
		CustomerID:     "CUS_abc",
		SubscriptionID: "SUB_xyz",
		PriceID:        "PLN_pro",
	}))
	require.NoError(t, repo.Update(ctx, sub))

	bySub, err := repo.GetByProviderSubscriptionID(ctx, vo.ProviderPaystack, "SUB_xyz")
	require.NoError(t, err)
	require.NotNil(t, bySub)
	assert.Equal(t, "org_1", bySub.OrganizationID())
	assert.Equal(t, plan.TierPro, bySub.Plan())

	byCustomer, err := repo.GetByProviderCustomerID(ctx, vo.ProviderPaystack, "CUS_abc")
	require.NoError(t, err)
	require.NotNil(t, byCustomer)

	none, err := repo.GetByProviderSubscriptionID(ctx, vo.ProviderStripe, "SUB_xyz")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.GetByProviderCustomerID(ctx, "ADYEN", "x")
	assert.ErrorIs(t, err, subscription.ErrInvalidProvider)
}

func TestSubscriptionRepository_LockInsideTransaction(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewNop())
	tm := db.NewTransactionManager(gdb)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		sub, err := repo.LockByOrganizationID(ctx, "org_lock")
		if err != nil {
			return err
		}
		assert.NotZero(t, sub.ID())
		return nil
	})
	require.NoError(t, err)
}

func TestUsageRepository_CountsOnlyInsidePeriod(t *testing.T) {
	gdb := setupTestDB(t)
	subs := NewSubscriptionRepository(gdb, logger.NewNop())
	usage := NewUsageRepository(gdb, logger.NewNop())
	ctx := context.Background()

	sub, err := subs.GetOrCreate(ctx, "org_1")
	require.NoError(t, err)

	june := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	may := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)
	tokens := func(n int64) *int64 { return &n }

	for _, rec := range []struct {
		at     time.Time
		typ    subscription.UsageType
		amount *int64
	}{
		{june, subscription.UsageDocumentGenerated, nil},
		{june.Add(time.Hour), subscription.UsageDocumentGenerated, nil},
		{may, subscription.UsageDocumentGenerated, nil},
		{june, subscription.UsageAiTokenUsage, tokens(1500)},
		{june.Add(2 * time.Hour), subscription.UsageAiTokenUsage, tokens(500)},
		{may, subscription.UsageAiTokenUsage, tokens(9000)},
	} {
		r, err := subscription.NewUsageRecord(sub.ID(), rec.typ, rec.amount, "document", "doc", biztime.MonthPeriod(rec.at), rec.at)
		require.NoError(t, err)
		require.NoError(t, usage.Create(ctx, r))
		assert.NotZero(t, r.ID())
	}

	period := biztime.MonthPeriod(june)

	docs, err := usage.Aggregate(ctx, sub.ID(), subscription.UsageDocumentGenerated, subscription.AggregateCount, period)
	require.NoError(t, err)
	assert.Equal(t, int64(2), docs)

	sum, err := usage.Aggregate(ctx, sub.ID(), subscription.UsageAiTokenUsage, subscription.AggregateSum, period)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), sum)

	generations, err := usage.Aggregate(ctx, sub.ID(), subscription.UsageAiTokenUsage, subscription.AggregateCount, period)
	require.NoError(t, err)
	assert.Equal(t, int64(2), generations)

	totals, err := usage.Totals(ctx, sub.ID(), period)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals[subscription.UsageDocumentGenerated].Count)
	assert.Equal(t, int64(2000), totals[subscription.UsageAiTokenUsage].Amount)
	_, ok := totals[subscription.UsageStorageUsed]
	assert.False(t, ok)

	records, err := usage.ListInPeriod(ctx, sub.ID(), period, 10)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.False(t, records[0].CreatedAt().Before(records[len(records)-1].CreatedAt()))
}

func TestBillingEventRepository_Dedup(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewBillingEventRepository(gdb, logger.NewNop())
	ctx := context.Background()

	fresh, err := repo.Record(ctx, vo.ProviderStripe, "evt_1", "customer.subscription.updated", "org_1", []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.Record(ctx, vo.ProviderStripe, "evt_1", "customer.subscription.updated", "org_1", []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = repo.Record(ctx, vo.ProviderPolar, "evt_1", "subscription.updated", "", []byte("not json"))
	require.NoError(t, err)
	assert.True(t, fresh)

	seen, err := repo.Exists(ctx, vo.ProviderStripe, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = repo.Exists(ctx, vo.ProviderPaystack, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}
