// Package dto holds the provider webhook payload shapes the billing use cases
// reconcile from. Only the fields the reconciliation reads are decoded.
package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const organizationIDKey = "organizationId"

// StripeEvent is the envelope of every Stripe delivery.
type StripeEvent struct {
	ID   string          `json:"id" validate:"required"`
	Type string          `json:"type" validate:"required"`
	Data StripeEventData `json:"data"`
}

type StripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// StripeSubscription is the customer.subscription.* object.
type StripeSubscription struct {
	ID                 string            `json:"id" validate:"required"`
	Customer           string            `json:"customer" validate:"required"`
	Status             string            `json:"status" validate:"required"`
	Metadata           map[string]string `json:"metadata"`
	Items              StripeItemList    `json:"items"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialStart         *int64            `json:"trial_start"`
	TrialEnd           *int64            `json:"trial_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CanceledAt         *int64            `json:"canceled_at"`
}

type StripeItemList struct {
	Data []StripeItem `json:"data"`
}

type StripeItem struct {
	Price              StripePrice `json:"price"`
	CurrentPeriodStart int64       `json:"current_period_start"`
	CurrentPeriodEnd   int64       `json:"current_period_end"`
}

type StripePrice struct {
	ID string `json:"id"`
}

func (s *StripeSubscription) OrganizationID() string {
	return strings.TrimSpace(s.Metadata[organizationIDKey])
}

// PriceID is the price of the first item; subscriptions are sold one plan
// per subscription.
func (s *StripeSubscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// Period falls back to the first item's period, which newer API versions
// report instead of the top level fields.
func (s *StripeSubscription) Period() (start, end *time.Time) {
	startUnix, endUnix := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if startUnix == 0 && len(s.Items.Data) > 0 {
		startUnix, endUnix = s.Items.Data[0].CurrentPeriodStart, s.Items.Data[0].CurrentPeriodEnd
	}
	return unixPtr(startUnix), unixPtr(endUnix)
}

func (s *StripeSubscription) Trial() (start, end *time.Time) {
	return unixPtrFrom(s.TrialStart), unixPtrFrom(s.TrialEnd)
}

func (s *StripeSubscription) CanceledTime() *time.Time {
	return unixPtrFrom(s.CanceledAt)
}

// DecodeStripeSubscription extracts the subscription object of e.
func DecodeStripeSubscription(e *StripeEvent) (*StripeSubscription, error) {
	var sub StripeSubscription
	if err := json.Unmarshal(e.Data.Object, &sub); err != nil {
		return nil, fmt.Errorf("decode stripe subscription of event %s: %w", e.ID, err)
	}
	return &sub, nil
}

// PolarEvent is the envelope of a Polar delivery. The event ID travels in
// the webhook-id header, not the body.
type PolarEvent struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// PolarSubscription is the subscription.* data object.
type PolarSubscription struct {
	ID                 string         `json:"id" validate:"required"`
	Status             string         `json:"status" validate:"required"`
	CustomerID         string         `json:"customer_id" validate:"required"`
	ProductID          string         `json:"product_id"`
	CurrentPeriodStart *time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time     `json:"current_period_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	CanceledAt         *time.Time     `json:"canceled_at"`
	EndedAt            *time.Time     `json:"ended_at"`
	Metadata           map[string]any `json:"metadata"`
	Customer           *PolarCustomer `json:"customer"`
}

type PolarCustomer struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	ExternalID *string `json:"external_id"`
}

// OrganizationID prefers the subscription metadata and falls back to the
// customer's external ID, which customer creation sets to the organization.
func (s *PolarSubscription) OrganizationID() string {
	if v := metadataString(s.Metadata); v != "" {
		return v
	}
	if s.Customer != nil && s.Customer.ExternalID != nil {
		return strings.TrimSpace(*s.Customer.ExternalID)
	}
	return ""
}

func DecodePolarSubscription(e *PolarEvent) (*PolarSubscription, error) {
	var sub PolarSubscription
	if err := json.Unmarshal(e.Data, &sub); err != nil {
		return nil, fmt.Errorf("decode polar subscription of %s event: %w", e.Type, err)
	}
	return &sub, nil
}

// PaystackEvent is the envelope of a Paystack delivery. Paystack sends no
// event ID; callers derive one from the payload.
type PaystackEvent struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data"`
}

// PaystackSubscription is the data object of subscription.* events.
type PaystackSubscription struct {
	SubscriptionCode string           `json:"subscription_code" validate:"required"`
	Status           string           `json:"status" validate:"required"`
	Plan             PaystackPlan     `json:"plan"`
	Customer         PaystackCustomer `json:"customer"`
	CreatedAt        *time.Time       `json:"createdAt"`
	NextPaymentDate  *time.Time       `json:"next_payment_date"`
	CancelledAt      *time.Time       `json:"cancelledAt"`
}

type PaystackPlan struct {
	PlanCode string `json:"plan_code"`
	Interval string `json:"interval"`
}

type PaystackCustomer struct {
	CustomerCode string         `json:"customer_code"`
	Email        string         `json:"email"`
	Metadata     map[string]any `json:"metadata"`
}

func (s *PaystackSubscription) OrganizationID() string {
	return metadataString(s.Customer.Metadata)
}

func DecodePaystackSubscription(e *PaystackEvent) (*PaystackSubscription, error) {
	var sub PaystackSubscription
	if err := json.Unmarshal(e.Data, &sub); err != nil {
		return nil, fmt.Errorf("decode paystack subscription of %s event: %w", e.Event, err)
	}
	return &sub, nil
}

func metadataString(m map[string]any) string {
	v, ok := m[organizationIDKey].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func unixPtrFrom(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	return unixPtr(*sec)
}
