package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// IdempotencyRecord stores the outcome of one mutating call keyed by
// the caller-supplied idempotency token.  Replaying the token returns
// the recorded assignment IDs instead of performing the mutation
// again, so a retried request never consumes capacity twice.
type IdempotencyRecord struct {
	OpKey         string
	Operation     string
	AssignmentIDs []uint64
	CreatedAt     time.Time
}

// IdempotencyRepo persists idempotency records.  The op_key column is
// the primary key, so two transactions racing on the same token
// serialize on the insert: the loser observes a duplicate-key error,
// aborts its own work and replays the winner's result.
type IdempotencyRepo struct {
	db *sql.DB
}

// NewIdempotencyRepo returns an IdempotencyRepo bound to the given database.
func NewIdempotencyRepo(db *sql.DB) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

// Get looks a token up outside any transaction.  Returns nil when the
// token has not been used.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	const q = `SELECT op_key, operation, assignment_ids, created_at FROM idempotency_keys WHERE op_key = ?`
	var rec IdempotencyRecord
	var ids string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&rec.OpKey, &rec.Operation, &ids, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.AssignmentIDs = decodeIDs(ids)
	return &rec, nil
}

// ReserveTx claims a token inside the caller's transaction before the
// mutation runs.  A duplicate-key failure here means another request
// with the same token already committed (or is about to); callers
// should roll back and replay via Get.
func (r *IdempotencyRepo) ReserveTx(ctx context.Context, tx *sql.Tx, key, operation string) error {
	const q = `INSERT INTO idempotency_keys (op_key, operation, assignment_ids) VALUES (?, ?, '')`
	_, err := tx.ExecContext(ctx, q, key, operation)
	return err
}

// RecordResultTx stores the assignment IDs produced under the token.
// Runs in the same transaction as the mutation so the token and its
// result become durable together.
func (r *IdempotencyRepo) RecordResultTx(ctx context.Context, tx *sql.Tx, key string, assignmentIDs []uint64) error {
	const q = `UPDATE idempotency_keys SET assignment_ids = ? WHERE op_key = ?`
	_, err := tx.ExecContext(ctx, q, encodeIDs(assignmentIDs), key)
	return err
}

func encodeIDs(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(id, 10))
	}
	return strings.Join(parts, ",")
}

func decodeIDs(s string) []uint64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
