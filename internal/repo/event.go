package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// EventRepo has no ACL gate: the event store is never addressed by an
// end-user request, only by services enqueuing a follow-up and by the
// polling worker that drains it.
type EventRepo struct {
	q db.Querier
}

func (r *EventRepo) Add(ctx context.Context, payload []byte) (db.EventEntry, error) {
	e, err := r.q.AddEvent(ctx, payload)
	if err != nil {
		return db.EventEntry{}, svcerr.Internal(err)
	}
	return e, nil
}

func (r *EventRepo) AddScheduled(ctx context.Context, payload []byte, scheduledOn pgtype.Timestamptz) (db.EventEntry, error) {
	e, err := r.q.AddScheduledEvent(ctx, payload, scheduledOn)
	if err != nil {
		return db.EventEntry{}, svcerr.Internal(err)
	}
	return e, nil
}

func (r *EventRepo) ClaimForProcessing(ctx context.Context, limit int32) ([]db.EventEntry, error) {
	events, err := r.q.GetEventsForProcessing(ctx, limit)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return events, nil
}

func (r *EventRepo) ResetStuck(ctx context.Context, maxAttempts, stuckThresholdSec int32) ([]db.EventEntry, error) {
	events, err := r.q.ResetStuckEvents(ctx, maxAttempts, stuckThresholdSec)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return events, nil
}

func (r *EventRepo) Complete(ctx context.Context, id int64) error {
	if err := r.q.CompleteEvent(ctx, id); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *EventRepo) Fail(ctx context.Context, id int64, maxAttempts int32) error {
	if err := r.q.FailEvent(ctx, id, maxAttempts); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}
