package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// AddEvent enqueues an event for immediate pickup on the next poll.
func (q *Queries) AddEvent(ctx context.Context, payload []byte) (EventEntry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO event_store (event, status, attempt_count, created_at, status_updated_at, scheduled_on)
		VALUES ($1, $2, 0, now(), now(), NULL)
		RETURNING id, event, status, attempt_count, created_at, status_updated_at, scheduled_on
	`, payload, EventStatusPending)
	return scanEvent(row)
}

// AddScheduledEvent enqueues an event that must not be picked up before
// scheduledOn, used for time-delayed follow-ups such as a payment expiry
// check.
func (q *Queries) AddScheduledEvent(ctx context.Context, payload []byte, scheduledOn pgtype.Timestamptz) (EventEntry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO event_store (event, status, attempt_count, created_at, status_updated_at, scheduled_on)
		VALUES ($1, $2, 0, now(), now(), $3)
		RETURNING id, event, status, attempt_count, created_at, status_updated_at, scheduled_on
	`, payload, EventStatusPending, scheduledOn)
	return scanEvent(row)
}

// GetEventsForProcessing atomically claims up to limit pending, due events
// by flipping them to in_progress and bumping their attempt count, using
// FOR UPDATE SKIP LOCKED so concurrent pollers never claim the same row
// (§4.2, §8 property: an event is picked up by at most one worker at a time).
func (q *Queries) GetEventsForProcessing(ctx context.Context, limit int32) ([]EventEntry, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE event_store
		SET attempt_count = attempt_count + 1, status = $1, status_updated_at = now()
		WHERE id IN (
			SELECT id FROM event_store
			WHERE status = $2 AND (scheduled_on IS NULL OR scheduled_on <= now())
			ORDER BY id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event, status, attempt_count, created_at, status_updated_at, scheduled_on
	`, EventStatusInProgress, EventStatusPending, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []EventEntry
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

// ResetStuckEvents reclaims events left in_progress too long — a worker that
// died mid-handler. Events under the attempt ceiling go back to pending for
// another try; events at the ceiling are marked failed outright so they stop
// being retried forever.
func (q *Queries) ResetStuckEvents(ctx context.Context, maxProcessingAttempts int32, stuckThresholdSec int32) ([]EventEntry, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE event_store
		SET status = CASE WHEN attempt_count >= $1 THEN $2 ELSE $3 END,
		    status_updated_at = now()
		WHERE status = $4
		  AND status_updated_at <= now() - ($5 || ' seconds')::interval
		RETURNING id, event, status, attempt_count, created_at, status_updated_at, scheduled_on
	`, maxProcessingAttempts, EventStatusFailed, EventStatusPending, EventStatusInProgress, stuckThresholdSec)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []EventEntry
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

// CompleteEvent marks an in_progress event completed. The status precondition
// means a handler that raced past its own reset (ResetStuckEvents already
// reclaimed the row) silently loses instead of corrupting a retried attempt.
func (q *Queries) CompleteEvent(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE event_store SET status = $1, status_updated_at = now()
		WHERE id = $2 AND status = $3
	`, EventStatusCompleted, id, EventStatusInProgress)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailEvent records a failed attempt: back to pending if attempts remain
// under the ceiling, or permanently failed otherwise.
func (q *Queries) FailEvent(ctx context.Context, id int64, maxProcessingAttempts int32) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE event_store
		SET status = CASE WHEN attempt_count >= $1 THEN $2 ELSE $3 END,
		    status_updated_at = now()
		WHERE id = $4 AND status = $5
	`, maxProcessingAttempts, EventStatusFailed, EventStatusPending, id, EventStatusInProgress)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row interface {
	Scan(dest ...interface{}) error
}) (EventEntry, error) {
	var e EventEntry
	err := row.Scan(&e.ID, &e.Event, &e.Status, &e.AttemptCount, &e.CreatedAt, &e.StatusUpdatedAt, &e.ScheduledOn)
	if err != nil {
		return EventEntry{}, mapErr(err)
	}
	return e, nil
}
