package usecases

import (
	"context"
	"time"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
)

type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntitlementInvalidator drops cached entitlement views after a write.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, organizationID string)
}

// BillingNotifier is told about plan changes after they are committed.
type BillingNotifier interface {
	NotifyPlanChanged(ctx context.Context, notice PlanChangedNotice) error
	NotifySubscriptionCanceled(ctx context.Context, notice SubscriptionCanceledNotice) error
}

type PlanChangedNotice struct {
	OrganizationID string
	Provider       vo.PaymentProvider
	PreviousPlan   plan.Tier
	Plan           plan.Tier
	Status         vo.SubscriptionStatus
	PeriodEnd      *time.Time
}

type SubscriptionCanceledNotice struct {
	OrganizationID string
	Provider       vo.PaymentProvider
	PreviousPlan   plan.Tier
	CanceledAt     time.Time
}
