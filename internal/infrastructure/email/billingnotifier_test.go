package email

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/services/markdown"
)

type captureSender struct {
	sent []Message
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestBillingNotifier_PlanChanged(t *testing.T) {
	sender := &captureSender{}
	n := NewBillingNotifier(sender, markdown.NewRenderer(), []string{"billing@lexora.law"}, logger.NewNop())

	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, n.NotifyPlanChanged(context.Background(), usecases.PlanChangedNotice{
		OrganizationID: "org_1",
		Provider:       vo.ProviderStripe,
		PreviousPlan:   plan.TierFree,
		Plan:           plan.TierPro,
		Status:         vo.StatusActive,
		PeriodEnd:      &end,
	}))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"billing@lexora.law"}, msg.To)
	assert.Equal(t, "Organization org_1 upgraded to Pro", msg.Subject)
	assert.Contains(t, msg.HTML, "<strong>Organization:</strong>")
	assert.Contains(t, msg.Text, "2026-04-01")
}

func TestBillingNotifier_Canceled(t *testing.T) {
	sender := &captureSender{}
	n := NewBillingNotifier(sender, markdown.NewRenderer(), []string{"billing@lexora.law"}, logger.NewNop())

	require.NoError(t, n.NotifySubscriptionCanceled(context.Background(), usecases.SubscriptionCanceledNotice{
		OrganizationID: "org_1",
		Provider:       vo.ProviderPolar,
		PreviousPlan:   plan.TierMax,
		CanceledAt:     time.Date(2026, 3, 20, 9, 30, 0, 0, time.UTC),
	}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Organization org_1 canceled its Max plan", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Text, "back on the Free plan")
}

func TestBillingNotifier_NoRecipients(t *testing.T) {
	sender := &captureSender{}
	n := NewBillingNotifier(sender, markdown.NewRenderer(), nil, logger.NewNop())
	require.NoError(t, n.NotifySubscriptionCanceled(context.Background(), usecases.SubscriptionCanceledNotice{OrganizationID: "org_1"}))
	assert.Empty(t, sender.sent)
}
