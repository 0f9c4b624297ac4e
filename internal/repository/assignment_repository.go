package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// AssignmentRepo provides persistence for placement records.  All
// mutations that consume or release capacity run inside transactions
// whose container row is held under FOR UPDATE (see
// ContainerRepo.LockForPlacementTx), so occupancy counts observed in
// the same transaction cannot be invalidated by concurrent writers.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo returns an AssignmentRepo bound to the given database.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

const assignmentCols = `id, container_id, person_id, group_kind, group_id, role_in_group,
       lifecycle_status, lock_status, occupied_date, created_at, updated_at`

func scanAssignment(sc interface {
	Scan(dest ...interface{}) error
}) (*model.Assignment, error) {
	var a model.Assignment
	var groupID, role, occupied sql.NullString
	if err := sc.Scan(&a.ID, &a.ContainerID, &a.PersonID, &a.GroupKind, &groupID, &role,
		&a.LifecycleStatus, &a.LockStatus, &occupied, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if groupID.Valid {
		v := groupID.String
		a.GroupID = &v
	}
	if role.Valid {
		v := role.String
		a.RoleInGroup = &v
	}
	if occupied.Valid {
		v := occupied.String
		a.OccupiedDate = &v
	}
	return &a, nil
}

// CountActiveTx computes the container's current occupancy inside a
// transaction: the number of rows whose lifecycle status still
// consumes capacity (PLACED or RESERVED).
func (r *AssignmentRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, containerID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM assignments
	           WHERE container_id = ? AND lifecycle_status IN ('PLACED','RESERVED')`
	var n uint32
	if err := tx.QueryRowContext(ctx, q, containerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountActive is the lock-free variant used by capacity previews.  The
// result may be slightly stale; only the transactional count guards
// actual inserts.
func (r *AssignmentRepo) CountActive(ctx context.Context, containerID uint64) (uint32, error) {
	const q = `SELECT COUNT(*) FROM assignments
	           WHERE container_id = ? AND lifecycle_status IN ('PLACED','RESERVED')`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, containerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateTx inserts one assignment row and reads it back so generated
// ID, defaults and timestamps are populated on the passed record.
func (r *AssignmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
	const ins = `INSERT INTO assignments
	             (container_id, person_id, group_kind, group_id, role_in_group, lifecycle_status, occupied_date)
	             VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, a.ContainerID, a.PersonID, a.GroupKind,
		a.GroupID, a.RoleInGroup, a.LifecycleStatus, a.OccupiedDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	const sel = `SELECT ` + assignmentCols + ` FROM assignments WHERE id = ?`
	full, err := scanAssignment(tx.QueryRowContext(ctx, sel, a.ID))
	if err != nil {
		return err
	}
	*a = *full
	return nil
}

// GetByID loads one assignment by primary key.  Returns
// ErrAssignmentNotFound when absent.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (*model.Assignment, error) {
	const q = `SELECT ` + assignmentCols + ` FROM assignments WHERE id = ?`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

// GetMany loads the assignments with the given IDs.  Used when a
// replayed idempotency token needs the originally created rows.
func (r *AssignmentRepo) GetMany(ctx context.Context, ids []uint64) ([]model.Assignment, error) {
	if len(ids) == 0 {
		return []model.Assignment{}, nil
	}
	query := `SELECT ` + assignmentCols + ` FROM assignments WHERE id IN (` +
		placeholders(len(ids)) + `) ORDER BY id`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Assignment, 0, len(ids))
	for rows.Next() {
		m, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FindByContainerPersonsTx returns the rows for the given persons in
// one container and lifecycle status, read under FOR UPDATE.
func (r *AssignmentRepo) FindByContainerPersonsTx(ctx context.Context, tx *sql.Tx, containerID uint64, personIDs []uint64, status model.LifecycleStatus) ([]model.Assignment, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + assignmentCols + ` FROM assignments
	          WHERE container_id = ? AND lifecycle_status = ?
	            AND person_id IN (` + placeholders(len(personIDs)) + `) FOR UPDATE`
	args := make([]interface{}, 0, len(personIDs)+2)
	args = append(args, containerID, status)
	for _, id := range personIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		m, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// LockByIDTx re-reads one assignment under FOR UPDATE.  Lifecycle
// transitions must use this freshest view, not an earlier read, so a
// qualify racing an exit cannot slip past the lock check.
func (r *AssignmentRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Assignment, error) {
	const q = `SELECT ` + assignmentCols + ` FROM assignments WHERE id = ? FOR UPDATE`
	a, err := scanAssignment(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	return a, err
}

// LockGroupTx returns the assignment together with every sibling
// sharing its group identifier, all read under FOR UPDATE.  For
// ungrouped rows the slice contains only the row itself.  Siblings
// are returned regardless of lifecycle status; callers filter.
func (r *AssignmentRepo) LockGroupTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) ([]model.Assignment, error) {
	if a.GroupID == nil {
		fresh, err := r.LockByIDTx(ctx, tx, a.ID)
		if err != nil {
			return nil, err
		}
		return []model.Assignment{*fresh}, nil
	}
	const q = `SELECT ` + assignmentCols + ` FROM assignments WHERE group_id = ? ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, *a.GroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		m, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrAssignmentNotFound
	}
	return out, nil
}

// UpdateLifecycleTx transitions the given rows from one lifecycle
// status to another as a conditional update.  The returned count lets
// callers verify that every targeted row was still in the expected
// state at write time.
func (r *AssignmentRepo) UpdateLifecycleTx(ctx context.Context, tx *sql.Tx, ids []uint64, from, to model.LifecycleStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE assignments SET lifecycle_status = ? WHERE lifecycle_status = ? AND id IN (` +
		placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, to, from)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkQualifiedTx sets the terminal QUALIFIED lock on a single row.
// The state condition is re-checked inside the UPDATE itself; a zero
// row count means the record left the PLACED state since it was read.
func (r *AssignmentRepo) MarkQualifiedTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	const q = `UPDATE assignments SET lock_status = 'QUALIFIED'
	           WHERE id = ? AND lifecycle_status = 'PLACED'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StampOccupiedDateTx records the target DIKSHA day on the given
// rows.  Used on meeting-side candidates when a forward seat is
// reserved, making the candidate↔reservation link explicit.
func (r *AssignmentRepo) StampOccupiedDateTx(ctx context.Context, tx *sql.Tx, ids []uint64, day string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE assignments SET occupied_date = ? WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, day)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// FindReservedTx returns the RESERVED rows in a container matching the
// given persons and occupied day, read under FOR UPDATE so a
// concurrent release cannot race the promotion.
func (r *AssignmentRepo) FindReservedTx(ctx context.Context, tx *sql.Tx, containerID uint64, personIDs []uint64, day string) ([]model.Assignment, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + assignmentCols + ` FROM assignments
	          WHERE container_id = ? AND occupied_date = ? AND lifecycle_status = 'RESERVED'
	            AND person_id IN (` + placeholders(len(personIDs)) + `) FOR UPDATE`
	args := make([]interface{}, 0, len(personIDs)+2)
	args = append(args, containerID, day)
	for _, id := range personIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		m, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// AssignmentDetail pairs an assignment with the person display fields
// the dashboard needs when rendering a container.
type AssignmentDetail struct {
	model.Assignment
	PersonName   string       `json:"person_name"`
	PersonGender model.Gender `json:"person_gender"`
}

// ListDetailByContainer returns a container's assignments in one
// lifecycle status joined with person name and gender, ordered by
// creation time.
func (r *AssignmentRepo) ListDetailByContainer(ctx context.Context, containerID uint64, status model.LifecycleStatus) ([]AssignmentDetail, error) {
	const q = `SELECT a.id, a.container_id, a.person_id, a.group_kind, a.group_id, a.role_in_group,
	                  a.lifecycle_status, a.lock_status, a.occupied_date, a.created_at, a.updated_at,
	                  p.full_name, p.gender
	           FROM assignments a
	           JOIN persons p ON p.id = a.person_id
	           WHERE a.container_id = ? AND a.lifecycle_status = ?
	           ORDER BY a.created_at, a.id`
	rows, err := r.db.QueryContext(ctx, q, containerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AssignmentDetail, 0)
	for rows.Next() {
		var d AssignmentDetail
		var groupID, role, occupied sql.NullString
		if err := rows.Scan(&d.ID, &d.ContainerID, &d.PersonID, &d.GroupKind, &groupID, &role,
			&d.LifecycleStatus, &d.LockStatus, &occupied, &d.CreatedAt, &d.UpdatedAt,
			&d.PersonName, &d.PersonGender); err != nil {
			return nil, err
		}
		if groupID.Valid {
			v := groupID.String
			d.GroupID = &v
		}
		if role.Valid {
			v := role.String
			d.RoleInGroup = &v
		}
		if occupied.Valid {
			v := occupied.String
			d.OccupiedDate = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GenderCount aggregates placed occupants of one container day by
// gender for the calendar summary.
type GenderCount struct {
	Day    string
	Gender model.Gender
	Count  uint32
}

// GenderCountsByRange aggregates PLACED occupants by day and gender
// for all containers of a purpose in the inclusive [from, to] range.
// Runs without locks; the projection tolerates slightly stale reads.
func (r *AssignmentRepo) GenderCountsByRange(ctx context.Context, from, to string, purpose model.Purpose) ([]GenderCount, error) {
	const q = `SELECT c.slot_date, p.gender, COUNT(*)
	           FROM assignments a
	           JOIN containers c ON c.id = a.container_id
	           JOIN persons p ON p.id = a.person_id
	           WHERE c.purpose = ? AND c.slot_date >= ? AND c.slot_date <= ?
	             AND a.lifecycle_status = 'PLACED'
	           GROUP BY c.slot_date, p.gender`
	rows, err := r.db.QueryContext(ctx, q, purpose, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GenderCount
	for rows.Next() {
		var gc GenderCount
		if err := rows.Scan(&gc.Day, &gc.Gender, &gc.Count); err != nil {
			return nil, err
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

// placeholders builds a "?, ?, ?" list of n entries for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
