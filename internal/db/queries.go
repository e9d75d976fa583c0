package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queries is the pgx-backed implementation of Querier. It runs against
// whatever DBTX it is constructed with — a pool for top-level calls, or an
// open pgx.Tx when a service has already started a transaction — mirroring
// the reference platform's *Queries / DBTX split.
type Queries struct {
	db DBTX
}

var _ Querier = (*Queries)(nil)

func New(db DBTX) *Queries { return &Queries{db: db} }

// GetDBTX returns the underlying connection or transaction.
func (q *Queries) GetDBTX() DBTX { return q.db }

// WithTx returns a new Queries bound to an open transaction, the way the
// reference platform's services start a transaction and rebind their
// Queries before doing a multi-statement operation.
func (q *Queries) WithTx(tx pgx.Tx) *Queries { return &Queries{db: tx} }

// ErrNotFound is returned in place of pgx.ErrNoRows so callers outside this
// package never need to import pgx directly to detect a missing row.
var ErrNotFound = errors.New("db: row not found")

// ErrUniqueViolation is returned for a unique-constraint violation, the
// "Constraints" case in the repository layer's error policy (§4.4) — the
// service layer decides whether to turn this into a Validation error or
// treat it as an idempotent no-op (e.g. duplicate AmountReceived).
var ErrUniqueViolation = errors.New("db: unique constraint violation")

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}
