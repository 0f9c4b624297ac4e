package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// HistoryRepo appends and reads the immutable archive of meeting
// candidate decisions.  There are no update or delete paths: a
// history row is written exactly once and only ever read afterwards.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo returns a HistoryRepo bound to the given database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// AppendTx writes one archive row inside the caller's transaction and
// reads it back to populate the generated ID and decision timestamp.
func (r *HistoryRepo) AppendTx(ctx context.Context, tx *sql.Tx, h *model.HistoryRecord) error {
	const ins = `INSERT INTO history_records
	             (source_container_id, person_id, person_name, person_address, person_gender,
	              group_kind, role_in_group, occupied_date, outcome, decided_by)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, h.SourceContainerID, h.PersonID, h.PersonName,
		h.PersonAddress, h.PersonGender, h.GroupKind, h.RoleInGroup, h.OccupiedDate,
		h.Outcome, h.DecidedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	const sel = `SELECT decided_at FROM history_records WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, h.ID).Scan(&h.DecidedAt)
}

// ListBySource returns every archive row produced by one meeting
// container, newest decision first.
func (r *HistoryRepo) ListBySource(ctx context.Context, containerID uint64) ([]model.HistoryRecord, error) {
	const q = `SELECT id, source_container_id, person_id, person_name, person_address, person_gender,
	                  group_kind, role_in_group, occupied_date, outcome, decided_at, decided_by
	           FROM history_records
	           WHERE source_container_id = ?
	           ORDER BY decided_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.HistoryRecord, 0)
	for rows.Next() {
		var h model.HistoryRecord
		var role, occupied sql.NullString
		if err := rows.Scan(&h.ID, &h.SourceContainerID, &h.PersonID, &h.PersonName,
			&h.PersonAddress, &h.PersonGender, &h.GroupKind, &role, &occupied,
			&h.Outcome, &h.DecidedAt, &h.DecidedBy); err != nil {
			return nil, err
		}
		if role.Valid {
			v := role.String
			h.RoleInGroup = &v
		}
		if occupied.Valid {
			v := occupied.String
			h.OccupiedDate = &v
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CountsByRange returns per-day history row counts for containers of
// a purpose in the inclusive [from, to] range.  History is always
// attached to the source container, so the count reflects decisions
// made from that day's container regardless of where they led.
func (r *HistoryRepo) CountsByRange(ctx context.Context, from, to string, purpose model.Purpose) (map[string]uint32, error) {
	const q = `SELECT c.slot_date, COUNT(*)
	           FROM history_records h
	           JOIN containers c ON c.id = h.source_container_id
	           WHERE c.purpose = ? AND c.slot_date >= ? AND c.slot_date <= ?
	           GROUP BY c.slot_date`
	rows, err := r.db.QueryContext(ctx, q, purpose, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]uint32)
	for rows.Next() {
		var day string
		var n uint32
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}
