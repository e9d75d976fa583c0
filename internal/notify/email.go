// Package notify sends store-facing email notices for subscription billing,
// grounded on the reference platform's Resend-backed EmailService. The
// billing run sends only the payment-failure notice; SendTrialEnding has no
// caller in this module.
package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/logger"
)

// EmailClient sends plain transactional emails through Resend. Unlike the
// reference platform's templated dunning campaigns, subscription billing
// only ever sends one of two fixed notices, so no template engine is wired.
type EmailClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

func New(apiKey, fromEmail, fromName string) *EmailClient {
	return &EmailClient{client: resend.NewClient(apiKey), fromEmail: fromEmail, fromName: fromName}
}

// SendSubscriptionPaymentFailed notifies a store's billing contact that a
// periodic subscription charge failed, the dunning-style notice described
// in SPEC_FULL.md's supplemented §4.9 behavior.
func (e *EmailClient) SendSubscriptionPaymentFailed(ctx context.Context, toEmail, storeID, reason string) {
	e.send(ctx, toEmail,
		"Your subscription payment could not be processed",
		fmt.Sprintf("We were unable to collect your subscription payment for store %s: %s. We'll retry on the next billing cycle.", storeID, reason),
	)
}

// SendTrialEnding notifies a store that its trial period has elapsed and
// billing will begin on the next periodic run.
func (e *EmailClient) SendTrialEnding(ctx context.Context, toEmail, storeID string) {
	e.send(ctx, toEmail,
		"Your trial period has ended",
		fmt.Sprintf("The trial period for store %s has ended. Billing will begin on the next cycle.", storeID),
	)
}

func (e *EmailClient) send(ctx context.Context, toEmail, subject, text string) {
	if toEmail == "" {
		return
	}
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Text:    text,
	}
	if _, err := e.client.Emails.Send(params); err != nil {
		logger.Warn("notify: send email failed", zap.String("to", toEmail), zap.Error(err))
	}
}
