package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/repo"
)

// Handlers is injected by the composition root (cmd/event-worker) so this
// package never imports the service packages that enqueue events back into
// it — avoiding an import cycle while still dispatching by kind.
type Handlers struct {
	InvoicePaid                          func(ctx context.Context, invoiceID uuid.UUID) error
	PaymentIntentAmountCapturableUpdated func(ctx context.Context, intentID, chargeID string) error
	PaymentIntentPaymentFailed           func(ctx context.Context, intentID string) error
	PayoutInitiated                      func(ctx context.Context, payoutID uuid.UUID) error
}

// Worker polls the outbox once per PollingRate, per the fixed loop contract
// (§4.2): reset stuck events, claim one pending event, dispatch by kind,
// complete or fail it.
type Worker struct {
	events            *repo.EventRepo
	handlers          Handlers
	publisher         *SQSPublisher
	pollingRate       time.Duration
	maxAttempts       int32
	stuckThresholdSec int32
}

func NewWorker(events *repo.EventRepo, handlers Handlers, pollingRate time.Duration, maxAttempts int32, stuckThreshold time.Duration) *Worker {
	return &Worker{
		events:            events,
		handlers:          handlers,
		pollingRate:       pollingRate,
		maxAttempts:       maxAttempts,
		stuckThresholdSec: int32(stuckThreshold.Seconds()),
	}
}

// WithPublisher attaches a best-effort SQS fan-out, published after each
// event completes.
func (w *Worker) WithPublisher(p *SQSPublisher) *Worker {
	w.publisher = p
	return w
}

// Run blocks, polling until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollingRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.events.ResetStuck(ctx, w.maxAttempts, w.stuckThresholdSec); err != nil {
		logger.Error("event store: reset stuck events failed", zap.Error(err))
	}

	claimed, err := w.events.ClaimForProcessing(ctx, 1)
	if err != nil {
		logger.Error("event store: claim failed", zap.Error(err))
		return
	}
	for _, e := range claimed {
		w.process(ctx, e)
	}
}

func (w *Worker) process(ctx context.Context, e db.EventEntry) {
	env, err := unmarshal(e.Event)
	if err != nil {
		logger.Error("event store: malformed payload", zap.Int64("event_id", e.ID), zap.Error(err))
		w.fail(ctx, e.ID)
		return
	}

	var handlerErr error
	switch env.Kind {
	case KindNoOp:
		handlerErr = nil
	case KindInvoicePaid:
		if w.handlers.InvoicePaid != nil {
			handlerErr = w.handlers.InvoicePaid(ctx, env.InvoiceID)
		}
	case KindPaymentIntentAmountCapturableUpdated:
		if w.handlers.PaymentIntentAmountCapturableUpdated != nil {
			handlerErr = w.handlers.PaymentIntentAmountCapturableUpdated(ctx, env.IntentID, env.ChargeID)
		}
	case KindPaymentIntentPaymentFailed:
		if w.handlers.PaymentIntentPaymentFailed != nil {
			handlerErr = w.handlers.PaymentIntentPaymentFailed(ctx, env.IntentID)
		}
	case KindPayoutInitiated:
		if w.handlers.PayoutInitiated != nil {
			handlerErr = w.handlers.PayoutInitiated(ctx, env.PayoutID)
		}
	default:
		handlerErr = fmt.Errorf("event store: unknown event kind %q", env.Kind)
	}

	if handlerErr != nil {
		logger.Error("event store: handler failed", zap.Int64("event_id", e.ID), zap.String("kind", string(env.Kind)), zap.Error(handlerErr))
		w.fail(ctx, e.ID)
		return
	}
	if err := w.events.Complete(ctx, e.ID); err != nil {
		logger.Error("event store: complete failed", zap.Int64("event_id", e.ID), zap.Error(err))
		return
	}
	if w.publisher != nil {
		w.publisher.Publish(ctx, e.ID, e.Event)
	}
}

func (w *Worker) fail(ctx context.Context, id int64) {
	if err := w.events.Fail(ctx, id, w.maxAttempts); err != nil {
		logger.Error("event store: fail-transition failed", zap.Int64("event_id", id), zap.Error(err))
	}
}
