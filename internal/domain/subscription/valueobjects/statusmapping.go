package valueobjects

import "strings"

// The mapping functions below are total. A status they do not recognise
// maps to ACTIVE and recognized is false so the caller can log it.

// MapStripeStatus translates a Stripe subscription status.
func MapStripeStatus(raw string) (status SubscriptionStatus, recognized bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive, true
	case "trialing":
		return StatusTrialing, true
	case "past_due":
		return StatusPastDue, true
	case "canceled":
		return StatusCanceled, true
	case "unpaid":
		return StatusUnpaid, true
	case "incomplete":
		return StatusIncomplete, true
	case "incomplete_expired":
		return StatusIncompleteExpired, true
	case "paused":
		return StatusPaused, true
	}
	return StatusActive, false
}

// MapPolarStatus translates a Polar subscription status.
func MapPolarStatus(raw string) (status SubscriptionStatus, recognized bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive, true
	case "trialing":
		return StatusTrialing, true
	case "past_due":
		return StatusPastDue, true
	case "canceled":
		return StatusCanceled, true
	case "unpaid":
		return StatusUnpaid, true
	case "incomplete":
		return StatusIncomplete, true
	case "incomplete_expired":
		return StatusIncompleteExpired, true
	}
	return StatusActive, false
}

// MapPaystackStatus translates a Paystack subscription status. A
// "non-renewing" subscription stays active until its period ends.
func MapPaystackStatus(raw string) (status SubscriptionStatus, cancelAtPeriodEnd bool, recognized bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return StatusActive, false, true
	case "non-renewing":
		return StatusActive, true, true
	case "attention":
		return StatusPastDue, false, true
	case "completed", "cancelled":
		return StatusCanceled, false, true
	}
	return StatusActive, false, false
}

// MapProviderStatus dispatches on provider.
func MapProviderStatus(provider PaymentProvider, raw string) (SubscriptionStatus, bool) {
	switch provider {
	case ProviderStripe:
		return MapStripeStatus(raw)
	case ProviderPolar:
		return MapPolarStatus(raw)
	case ProviderPaystack:
		st, _, ok := MapPaystackStatus(raw)
		return st, ok
	}
	return StatusActive, false
}
