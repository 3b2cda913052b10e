package billing

import (
	"fmt"
	"sort"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

// Gateways indexes the configured provider gateways.
type Gateways struct {
	byProvider      map[vo.PaymentProvider]paymentprovider.Gateway
	defaultProvider vo.PaymentProvider
}

// NewGateways registers gws. When defaultProvider is not among them the
// first gateway becomes the default.
func NewGateways(defaultProvider vo.PaymentProvider, gws ...paymentprovider.Gateway) *Gateways {
	g := &Gateways{byProvider: make(map[vo.PaymentProvider]paymentprovider.Gateway, len(gws))}
	for _, gw := range gws {
		g.byProvider[gw.Provider()] = gw
		if g.defaultProvider == "" {
			g.defaultProvider = gw.Provider()
		}
	}
	if _, ok := g.byProvider[defaultProvider]; ok {
		g.defaultProvider = defaultProvider
	}
	return g
}

// Get returns the gateway for p, or the default gateway when p is empty.
func (g *Gateways) Get(p vo.PaymentProvider) (paymentprovider.Gateway, error) {
	if p == "" {
		p = g.defaultProvider
	}
	gw, ok := g.byProvider[p]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("payment provider %q is not configured", p))
	}
	return gw, nil
}

func (g *Gateways) Default() vo.PaymentProvider {
	return g.defaultProvider
}

func (g *Gateways) Providers() []vo.PaymentProvider {
	out := make([]vo.PaymentProvider, 0, len(g.byProvider))
	for p := range g.byProvider {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
