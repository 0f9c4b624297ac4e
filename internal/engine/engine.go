// Package engine implements the calendar container assignment engine:
// capacity-guarded placement, group coordination, forward seat
// reservation, the per-record state machine, history archiving and
// the calendar summary projection.  Handlers stay thin; every
// operation here owns its own transaction.
package engine

import (
	"context"
	"database/sql"
	"log"

	"github.com/iliyamo/intake-calendar/internal/queue"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// Notifier publishes domain events to the message broker.  Publishing
// happens after commit and is best effort: a broker outage never
// fails a committed mutation.
type Notifier interface {
	CandidateConfirmed(ctx context.Context, ev queue.CandidateConfirmedEvent)
	AssignmentExited(ctx context.Context, ev queue.AssignmentExitedEvent)
}

// Meta carries the per-request mutation context every mutating call
// must supply: an actor label for the audit trail and an optional
// caller-chosen idempotency token.
type Meta struct {
	Actor   string // audit actor label, never empty at the engine boundary
	IdemKey string // idempotency token; empty disables replay protection
}

// Engine bundles the repositories behind the engine operations.  All
// dependencies except Notifier must be non-nil.
type Engine struct {
	db          *sql.DB
	Containers  *repository.ContainerRepo
	Assignments *repository.AssignmentRepo
	Persons     *repository.PersonRepo
	History     *repository.HistoryRepo
	Idempotency *repository.IdempotencyRepo
	Audit       *repository.AuditRepo
	Notifier    Notifier

	// DefaultCapacity seeds newly created containers.
	DefaultCapacity uint32
}

// New constructs an Engine over a shared database handle.  Notifier
// may be nil when no broker is configured.
func New(db *sql.DB, notifier Notifier, defaultCapacity uint32) *Engine {
	if db == nil {
		panic("nil db passed to engine.New")
	}
	return &Engine{
		db:          db,
		Containers:  repository.NewContainerRepo(db),
		Assignments: repository.NewAssignmentRepo(db),
		Persons:     repository.NewPersonRepo(db),
		History:     repository.NewHistoryRepo(db),
		Idempotency: repository.NewIdempotencyRepo(db),
		Audit:       repository.NewAuditRepo(db),
		Notifier:    notifier,

		DefaultCapacity: defaultCapacity,
	}
}

// inTx runs fn inside a transaction with a rollback guard: any error
// path rolls back, a clean return commits.
func (e *Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// replayed checks an idempotency token before any work starts and
// loads the originally produced assignments when the token has been
// seen.  The bool reports whether the call is a replay.
func (e *Engine) replayed(ctx context.Context, meta Meta) ([]uint64, bool, error) {
	if meta.IdemKey == "" {
		return nil, false, nil
	}
	rec, err := e.Idempotency.Get(ctx, meta.IdemKey)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	return rec.AssignmentIDs, true, nil
}

// claimKeyTx reserves the idempotency token inside the mutation's
// transaction.  A duplicate-key loss means a concurrent request with
// the same token won; the caller should abort and replay.
func (e *Engine) claimKeyTx(ctx context.Context, tx *sql.Tx, meta Meta, operation string) error {
	if meta.IdemKey == "" {
		return nil
	}
	return e.Idempotency.ReserveTx(ctx, tx, meta.IdemKey, operation)
}

// finishTx records the mutation outcome: the idempotency result (when
// a token was supplied) and the mandatory audit line.
func (e *Engine) finishTx(ctx context.Context, tx *sql.Tx, meta Meta, operation, message string, assignmentIDs []uint64) error {
	if meta.IdemKey != "" {
		if err := e.Idempotency.RecordResultTx(ctx, tx, meta.IdemKey, assignmentIDs); err != nil {
			return err
		}
	}
	return e.Audit.AppendTx(ctx, tx, meta.Actor, operation, meta.IdemKey, message)
}

// notifyConfirmed publishes the confirmation event when a notifier is
// wired, logging failures instead of propagating them.
func (e *Engine) notifyConfirmed(ctx context.Context, ev queue.CandidateConfirmedEvent) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.CandidateConfirmed(ctx, ev)
}

func (e *Engine) notifyExited(ctx context.Context, ev queue.AssignmentExitedEvent) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.AssignmentExited(ctx, ev)
}

// logReplay is a single place to note replays for operators chasing
// duplicate client retries.
func logReplay(op, key string) {
	log.Printf("%s: replayed idempotency key %s", op, key)
}
