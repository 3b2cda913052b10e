package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/services/markdown"
)

// BillingNotifier mails plan changes to the billing operations inbox.
type BillingNotifier struct {
	sender     Sender
	renderer   *markdown.Renderer
	recipients []string
	logger     logger.Interface
}

func NewBillingNotifier(sender Sender, renderer *markdown.Renderer, recipients []string, logger logger.Interface) *BillingNotifier {
	return &BillingNotifier{
		sender:     sender,
		renderer:   renderer,
		recipients: recipients,
		logger:     logger,
	}
}

func (n *BillingNotifier) NotifyPlanChanged(ctx context.Context, notice usecases.PlanChangedNotice) error {
	verb := "upgraded"
	if !notice.Plan.AtLeast(notice.PreviousPlan) {
		verb = "downgraded"
	}
	subject := fmt.Sprintf("Organization %s %s to %s", notice.OrganizationID, verb, notice.Plan.DisplayName())

	var b strings.Builder
	fmt.Fprintf(&b, "## Plan %s\n\n", verb)
	fmt.Fprintf(&b, "- **Organization:** `%s`\n", notice.OrganizationID)
	fmt.Fprintf(&b, "- **Provider:** %s\n", notice.Provider)
	fmt.Fprintf(&b, "- **Plan:** %s → %s\n", notice.PreviousPlan.DisplayName(), notice.Plan.DisplayName())
	fmt.Fprintf(&b, "- **Status:** %s\n", notice.Status)
	if notice.PeriodEnd != nil {
		fmt.Fprintf(&b, "- **Period ends:** %s\n", notice.PeriodEnd.Format("2006-01-02"))
	}
	return n.send(ctx, subject, b.String())
}

func (n *BillingNotifier) NotifySubscriptionCanceled(ctx context.Context, notice usecases.SubscriptionCanceledNotice) error {
	subject := fmt.Sprintf("Organization %s canceled its %s plan", notice.OrganizationID, notice.PreviousPlan.DisplayName())

	var b strings.Builder
	b.WriteString("## Subscription canceled\n\n")
	fmt.Fprintf(&b, "- **Organization:** `%s`\n", notice.OrganizationID)
	fmt.Fprintf(&b, "- **Provider:** %s\n", notice.Provider)
	fmt.Fprintf(&b, "- **Previous plan:** %s\n", notice.PreviousPlan.DisplayName())
	fmt.Fprintf(&b, "- **Canceled at:** %s\n", notice.CanceledAt.Format("2006-01-02 15:04 MST"))
	b.WriteString("\nThe organization is back on the Free plan.\n")
	return n.send(ctx, subject, b.String())
}

func (n *BillingNotifier) send(ctx context.Context, subject, body string) error {
	if len(n.recipients) == 0 {
		n.logger.Debugw("no billing alert recipients configured, skipping email", "subject", subject)
		return nil
	}
	html, err := n.renderer.HTML(body)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{
		To:      n.recipients,
		Subject: subject,
		HTML:    html,
		Text:    body,
	})
}
