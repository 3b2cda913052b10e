// Package billing reconciles provider subscription state into the
// subscription store and starts hosted checkouts.
package billing

import (
	"github.com/lexora-inc/lexora/internal/domain/plan"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/config"
)

// PriceRef is what a provider price, product or plan code stands for.
type PriceRef struct {
	Tier     plan.Tier
	Interval vo.BillingInterval
}

// PriceBook maps provider identifiers to tiers and back. It is built once
// from configuration and read concurrently.
type PriceBook struct {
	byID   map[vo.PaymentProvider]map[string]PriceRef
	byTier map[vo.PaymentProvider]map[plan.Tier]config.PriceIDs
}

func NewPriceBook(cfg config.BillingConfig) *PriceBook {
	pb := &PriceBook{
		byID:   make(map[vo.PaymentProvider]map[string]PriceRef),
		byTier: make(map[vo.PaymentProvider]map[plan.Tier]config.PriceIDs),
	}
	pb.add(vo.ProviderStripe, cfg.Stripe.Prices)
	pb.add(vo.ProviderPolar, cfg.Polar.Products)
	pb.add(vo.ProviderPaystack, cfg.Paystack.Plans)
	return pb
}

// add skips tier names that are not canonical or legacy so a typo in
// configuration never maps a price onto FREE.
func (pb *PriceBook) add(p vo.PaymentProvider, prices map[string]config.PriceIDs) {
	ids := make(map[string]PriceRef)
	tiers := make(map[plan.Tier]config.PriceIDs)
	for name, price := range prices {
		tier, ok := plan.ParseTier(name)
		if !ok {
			continue
		}
		tiers[tier] = price
		if price.Monthly != "" {
			ids[price.Monthly] = PriceRef{Tier: tier, Interval: vo.IntervalMonthly}
		}
		if price.Annual != "" {
			ids[price.Annual] = PriceRef{Tier: tier, Interval: vo.IntervalAnnual}
		}
	}
	pb.byID[p] = ids
	pb.byTier[p] = tiers
}

// Lookup resolves a provider identifier.
func (pb *PriceBook) Lookup(p vo.PaymentProvider, id string) (PriceRef, bool) {
	ref, ok := pb.byID[p][id]
	return ref, ok
}

// PriceFor returns the identifier to sell tier at interval through p.
func (pb *PriceBook) PriceFor(p vo.PaymentProvider, tier plan.Tier, interval vo.BillingInterval) (string, bool) {
	price, ok := pb.byTier[p][tier.Canonical()]
	if !ok {
		return "", false
	}
	id := price.Monthly
	if interval == vo.IntervalAnnual {
		id = price.Annual
	}
	return id, id != ""
}
