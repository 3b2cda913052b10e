package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/lexora-inc/lexora/internal/application/billing/dto"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

// Provider event types that change a subscription.
const (
	StripeSubscriptionCreated = "customer.subscription.created"
	StripeSubscriptionUpdated = "customer.subscription.updated"
	StripeSubscriptionPaused  = "customer.subscription.paused"
	StripeSubscriptionResumed = "customer.subscription.resumed"
	StripeSubscriptionDeleted = "customer.subscription.deleted"

	PolarSubscriptionCreated  = "subscription.created"
	PolarSubscriptionUpdated  = "subscription.updated"
	PolarSubscriptionActive   = "subscription.active"
	PolarSubscriptionCanceled = "subscription.canceled"
	PolarSubscriptionRevoked  = "subscription.revoked"

	PaystackSubscriptionCreate   = "subscription.create"
	PaystackSubscriptionNotRenew = "subscription.not_renew"
	PaystackSubscriptionDisable  = "subscription.disable"
)

// WebhookOutcome reports how a verified delivery was handled.
type WebhookOutcome struct {
	EventID   string      `json:"eventId"`
	EventType string      `json:"eventType"`
	Duplicate bool        `json:"duplicate,omitempty"`
	Handled   bool        `json:"handled"`
	Result    *SyncResult `json:"result,omitempty"`
}

type syncHandler func(ctx context.Context) (*SyncResult, error)

// ProcessWebhookUseCase decodes a verified provider delivery, skips
// redeliveries and routes subscription events to reconciliation. A delivery
// is logged only after it was reconciled, so a failed attempt is retried in
// full by the provider.
type ProcessWebhookUseCase struct {
	events       subscription.BillingEventRepository
	syncStripe   *SyncStripeSubscriptionUseCase
	syncPolar    *SyncPolarSubscriptionUseCase
	syncPaystack *SyncPaystackSubscriptionUseCase
	cancel       *HandleSubscriptionCanceledUseCase
	logger       logger.Interface
}

func NewProcessWebhookUseCase(
	events subscription.BillingEventRepository,
	syncStripe *SyncStripeSubscriptionUseCase,
	syncPolar *SyncPolarSubscriptionUseCase,
	syncPaystack *SyncPaystackSubscriptionUseCase,
	cancel *HandleSubscriptionCanceledUseCase,
	logger logger.Interface,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		events:       events,
		syncStripe:   syncStripe,
		syncPolar:    syncPolar,
		syncPaystack: syncPaystack,
		cancel:       cancel,
		logger:       logger,
	}
}

func (uc *ProcessWebhookUseCase) ProcessStripe(ctx context.Context, payload []byte) (*WebhookOutcome, error) {
	var event dto.StripeEvent
	if err := decodeEnvelope(payload, &event); err != nil {
		return nil, err
	}

	var handle syncHandler
	switch event.Type {
	case StripeSubscriptionCreated, StripeSubscriptionUpdated, StripeSubscriptionPaused, StripeSubscriptionResumed:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodeStripeSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.syncStripe.Execute(ctx, sub)
		}
	case StripeSubscriptionDeleted:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodeStripeSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.cancel.Execute(ctx, CancelCommandFromStripe(sub))
		}
	}
	return uc.process(ctx, vo.ProviderStripe, event.ID, event.Type, payload, handle)
}

// ProcessPolar takes the event id from the webhook-id header.
func (uc *ProcessWebhookUseCase) ProcessPolar(ctx context.Context, webhookID string, payload []byte) (*WebhookOutcome, error) {
	if strings.TrimSpace(webhookID) == "" {
		return nil, apperrors.NewValidationError("webhook id is required")
	}
	var event dto.PolarEvent
	if err := decodeEnvelope(payload, &event); err != nil {
		return nil, err
	}

	var handle syncHandler
	switch event.Type {
	case PolarSubscriptionCreated, PolarSubscriptionUpdated, PolarSubscriptionActive:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodePolarSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.syncPolar.Execute(ctx, sub)
		}
	case PolarSubscriptionCanceled, PolarSubscriptionRevoked:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodePolarSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.cancel.Execute(ctx, CancelCommandFromPolar(sub))
		}
	}
	return uc.process(ctx, vo.ProviderPolar, webhookID, event.Type, payload, handle)
}

// ProcessPaystack derives the event id from the payload since Paystack
// sends none.
func (uc *ProcessWebhookUseCase) ProcessPaystack(ctx context.Context, payload []byte) (*WebhookOutcome, error) {
	var event dto.PaystackEvent
	if err := decodeEnvelope(payload, &event); err != nil {
		return nil, err
	}

	var handle syncHandler
	switch event.Event {
	case PaystackSubscriptionCreate, PaystackSubscriptionNotRenew:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodePaystackSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.syncPaystack.Execute(ctx, sub)
		}
	case PaystackSubscriptionDisable:
		handle = func(ctx context.Context) (*SyncResult, error) {
			sub, err := dto.DecodePaystackSubscription(&event)
			if err != nil {
				return nil, apperrors.NewValidationError("malformed subscription object", err.Error())
			}
			return uc.cancel.Execute(ctx, CancelCommandFromPaystack(sub))
		}
	}
	return uc.process(ctx, vo.ProviderPaystack, PaystackEventID(payload), event.Event, payload, handle)
}

// PaystackEventID is the hex SHA-256 of the raw body.
func PaystackEventID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (uc *ProcessWebhookUseCase) process(
	ctx context.Context,
	provider vo.PaymentProvider,
	eventID, eventType string,
	payload []byte,
	handle syncHandler,
) (*WebhookOutcome, error) {
	out := &WebhookOutcome{EventID: eventID, EventType: eventType}

	seen, err := uc.events.Exists(ctx, provider, eventID)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to check webhook delivery", err)
	}
	if seen {
		uc.logger.Infow("skipping redelivered webhook", "provider", provider, "event_id", eventID, "event_type", eventType)
		out.Duplicate = true
		return out, nil
	}

	var organizationID string
	if handle != nil {
		result, err := handle(ctx)
		switch {
		case err == nil:
			out.Handled = true
			out.Result = result
			organizationID = result.OrganizationID
		case apperrors.IsNotFoundError(err):
			// Subscriptions started outside checkout carry no organization.
			uc.logger.Warnw("acknowledging webhook for unknown organization",
				"provider", provider,
				"event_id", eventID,
				"event_type", eventType,
				"error", err,
			)
		default:
			return nil, err
		}
	} else {
		uc.logger.Debugw("ignoring unhandled webhook event", "provider", provider, "event_type", eventType)
	}

	if _, err := uc.events.Record(ctx, provider, eventID, eventType, organizationID, payload); err != nil {
		// Reconciliation is committed; a redelivery converges on the same state.
		uc.logger.Warnw("failed to log webhook delivery", "provider", provider, "event_id", eventID, "error", err)
	}
	return out, nil
}

func decodeEnvelope(payload []byte, event any) error {
	if err := json.Unmarshal(payload, event); err != nil {
		return apperrors.NewValidationError("malformed webhook payload", err.Error())
	}
	return utils.ValidateStruct(event)
}
