package repository

import (
	"context"
	"database/sql"
)

// AuditRepo is the durable adapter for the external audit
// collaborator: one line appended per successful mutation, carrying
// the actor label and a human-readable commit message.  Entries are
// written in the mutation's transaction so an audit line exists iff
// the mutation committed.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns an AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// AppendTx writes one audit line inside the caller's transaction.
func (r *AuditRepo) AppendTx(ctx context.Context, tx *sql.Tx, actor, operation, opKey, message string) error {
	const q = `INSERT INTO audit_log (actor, operation, op_key, message) VALUES (?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, actor, operation, opKey, message)
	return err
}
