package valueobjects

import "strings"

// PaymentProvider identifies the billing system that owns a subscription.
type PaymentProvider string

const (
	ProviderStripe   PaymentProvider = "STRIPE"
	ProviderPolar    PaymentProvider = "POLAR"
	ProviderPaystack PaymentProvider = "PAYSTACK"
)

func (p PaymentProvider) String() string {
	return string(p)
}

func (p PaymentProvider) IsValid() bool {
	switch p {
	case ProviderStripe, ProviderPolar, ProviderPaystack:
		return true
	}
	return false
}

func ParseProvider(s string) (PaymentProvider, bool) {
	p := PaymentProvider(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// BillingInterval is the cadence a price is charged at.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalAnnual  BillingInterval = "annual"
)

func (i BillingInterval) IsValid() bool {
	return i == IntervalMonthly || i == IntervalAnnual
}

// ParseInterval also accepts the provider spellings "month", "year" and "yearly".
func ParseInterval(s string) (BillingInterval, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return IntervalMonthly, true
	case "annual", "annually", "year", "yearly":
		return IntervalAnnual, true
	}
	return "", false
}
