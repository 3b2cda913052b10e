package entitlement

import (
	"context"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
)

// EntitlementCache stores resolved views keyed by organization. Get returns
// nil, nil on a miss.
type EntitlementCache interface {
	Get(ctx context.Context, organizationID string) (*entitlement.View, error)
	Set(ctx context.Context, view *entitlement.View) error
	Invalidate(ctx context.Context, organizationIDs ...string) error
}

// TransactionRunner runs fn inside a single database transaction.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
