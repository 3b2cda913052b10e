package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

// RecordUsageCommand describes one completed gated action.
type RecordUsageCommand struct {
	OrganizationID string
	Type           subscription.UsageType
	Amount         *int64
	ResourceType   string
	ResourceID     string
	Metadata       map[string]any
}

// RecordUsage appends a usage record to the organization's current billing
// period. Call it exactly once after the gated action succeeded.
func (s *Service) RecordUsage(ctx context.Context, cmd RecordUsageCommand) (*subscription.UsageRecord, error) {
	if cmd.OrganizationID == "" {
		return nil, apperrors.NewValidationError("organization ID is required")
	}

	sub, err := s.subscriptionRepo.GetOrCreate(ctx, cmd.OrganizationID)
	if err != nil {
		s.logger.Errorw("failed to load subscription for usage", "organization_id", cmd.OrganizationID, "error", err)
		return nil, wrapRepoErr("record usage", err)
	}

	record, err := s.newRecord(sub, cmd)
	if err != nil {
		return nil, err
	}
	if err := s.usageRepo.Create(ctx, record); err != nil {
		s.logger.Errorw("failed to create usage record",
			"organization_id", cmd.OrganizationID,
			"usage_type", cmd.Type,
			"error", err,
		)
		return nil, wrapRepoErr("record usage", err)
	}

	s.logger.Debugw("usage recorded",
		"organization_id", cmd.OrganizationID,
		"subscription_id", sub.ID(),
		"usage_type", cmd.Type,
		"record_id", record.PublicID(),
	)
	return record, nil
}

func (s *Service) newRecord(sub *subscription.Subscription, cmd RecordUsageCommand) (*subscription.UsageRecord, error) {
	now := s.now()
	period := biztime.BillingPeriod(now, sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())
	record, err := subscription.NewUsageRecord(sub.ID(), cmd.Type, cmd.Amount, cmd.ResourceType, cmd.ResourceID, period, now)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid usage record", err.Error())
	}
	for k, v := range cmd.Metadata {
		record.SetMetadata(k, v)
	}
	return record, nil
}

// CurrentUsage returns the consumption against key in the current billing
// period. Only metered limits can be answered here; standing quotas such as
// seats are reported by the caller.
func (s *Service) CurrentUsage(ctx context.Context, organizationID string, key plan.LimitKey) (int64, error) {
	meter, ok := subscription.MeterFor(key)
	if !ok {
		return 0, apperrors.NewValidationError("limit is not metered", string(key))
	}

	sub, err := s.subscriptionRepo.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		s.logger.Errorw("failed to load subscription for usage", "organization_id", organizationID, "error", err)
		return 0, wrapRepoErr("load usage", err)
	}
	if sub == nil {
		return 0, nil
	}

	period := biztime.BillingPeriod(s.now(), sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())
	total, err := s.usageRepo.Aggregate(ctx, sub.ID(), meter.Type, meter.Aggregation, period)
	if err != nil {
		s.logger.Errorw("failed to aggregate usage",
			"organization_id", organizationID,
			"limit", key,
			"error", err,
		)
		return 0, wrapRepoErr("load usage", err)
	}
	return total, nil
}

// UsageSummary is the per-period usage report of an organization.
type UsageSummary struct {
	OrganizationID string                           `json:"organizationId"`
	Plan           plan.Tier                        `json:"plan"`
	PeriodStart    time.Time                        `json:"periodStart"`
	PeriodEnd      time.Time                        `json:"periodEnd"`
	Limits         []entitlement.LimitCheckResult   `json:"limits"`
	Totals         map[subscription.UsageType]int64 `json:"totals"`
}

// UsageSummary reports every metered limit against the current period.
func (s *Service) UsageSummary(ctx context.Context, organizationID string) (*UsageSummary, error) {
	view, err := s.Resolve(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subscriptionRepo.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		s.logger.Errorw("failed to load subscription for usage summary", "organization_id", organizationID, "error", err)
		return nil, wrapRepoErr("load usage", err)
	}

	var period biztime.Period
	totals := map[subscription.UsageType]subscription.UsageTotal{}
	if sub == nil {
		period = biztime.MonthPeriod(s.now())
	} else {
		period = biztime.BillingPeriod(s.now(), sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())
		totals, err = s.usageRepo.Totals(ctx, sub.ID(), period)
		if err != nil {
			s.logger.Errorw("failed to load usage totals", "organization_id", organizationID, "error", err)
			return nil, wrapRepoErr("load usage", err)
		}
	}

	summary := &UsageSummary{
		OrganizationID: organizationID,
		Plan:           view.Plan,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		Totals:         make(map[subscription.UsageType]int64, len(totals)),
	}
	for t, total := range totals {
		summary.Totals[t] = total.Count
	}
	for _, m := range subscription.Meters() {
		total := totals[m.Type]
		current := total.Count
		if m.Aggregation == subscription.AggregateSum {
			current = total.Amount
		}
		summary.Limits = append(summary.Limits, entitlement.CheckLimit(view, m.Limit, current))
	}
	return summary, nil
}

// MaxHistoryRecords caps UsageHistory.
const MaxHistoryRecords = 500

// UsageHistory lists the records of the current billing period, newest
// first, up to limit (capped at MaxHistoryRecords).
func (s *Service) UsageHistory(ctx context.Context, organizationID string, limit int) ([]*subscription.UsageRecord, error) {
	if organizationID == "" {
		return nil, apperrors.NewValidationError("organization ID is required")
	}
	if limit <= 0 || limit > MaxHistoryRecords {
		limit = MaxHistoryRecords
	}

	sub, err := s.subscriptionRepo.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		s.logger.Errorw("failed to load subscription for usage history", "organization_id", organizationID, "error", err)
		return nil, wrapRepoErr("load usage", err)
	}
	if sub == nil {
		return []*subscription.UsageRecord{}, nil
	}

	period := biztime.BillingPeriod(s.now(), sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())
	records, err := s.usageRepo.ListInPeriod(ctx, sub.ID(), period, limit)
	if err != nil {
		s.logger.Errorw("failed to list usage records", "organization_id", organizationID, "error", err)
		return nil, wrapRepoErr("load usage", err)
	}
	return records, nil
}

// ConsumeResult carries the record written by Consume and the checks it passed.
type ConsumeResult struct {
	Record *subscription.UsageRecord
	Checks []entitlement.LimitCheckResult
}

// Consume checks every limit metered by cmd.Type and records the usage in
// one transaction. The subscription row is locked first so concurrent
// consumers of the same organization are serialised and a quota of N admits
// exactly N units per period. Summed meters count the requested amount.
func (s *Service) Consume(ctx context.Context, cmd RecordUsageCommand) (*ConsumeResult, error) {
	if cmd.OrganizationID == "" {
		return nil, apperrors.NewValidationError("organization ID is required")
	}
	if !cmd.Type.IsValid() {
		return nil, apperrors.NewValidationError("invalid usage type", string(cmd.Type))
	}

	var result *ConsumeResult
	err := s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := s.subscriptionRepo.LockByOrganizationID(txCtx, cmd.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		view := s.resolveRow(cmd.OrganizationID, sub)
		period := biztime.BillingPeriod(s.now(), sub.CurrentPeriodStart(), sub.CurrentPeriodEnd())

		record, err := s.newRecord(sub, cmd)
		if err != nil {
			return err
		}

		var checks []entitlement.LimitCheckResult
		for _, m := range subscription.Meters() {
			if m.Type != cmd.Type {
				continue
			}
			current, err := s.usageRepo.Aggregate(txCtx, sub.ID(), m.Type, m.Aggregation, period)
			if err != nil {
				return fmt.Errorf("failed to aggregate usage: %w", err)
			}
			check, err := entitlement.RequireConsumption(view, m.Limit, current, record.Contribution(m.Aggregation))
			if err != nil {
				return err
			}
			checks = append(checks, check)
		}

		if err := s.usageRepo.Create(txCtx, record); err != nil {
			return fmt.Errorf("failed to create usage record: %w", err)
		}
		result = &ConsumeResult{Record: record, Checks: checks}
		return nil
	})
	if err != nil {
		var denial *entitlement.LimitExceededError
		if errors.As(err, &denial) {
			s.logger.Debugw("usage denied",
				"organization_id", cmd.OrganizationID,
				"limit", denial.Limit,
				"current", denial.Current,
				"max", denial.Max,
			)
			return nil, err
		}
		s.logger.Errorw("failed to consume usage",
			"organization_id", cmd.OrganizationID,
			"usage_type", cmd.Type,
			"error", err,
		)
		return nil, wrapRepoErr("record usage", err)
	}
	return result, nil
}
