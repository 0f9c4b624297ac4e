package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// ContainerRepo resolves and maintains calendar containers.  Exactly
// one container exists per (slot_date, purpose) pair; the table
// enforces this with a unique key so concurrent resolution cannot
// create duplicates.
type ContainerRepo struct {
	db *sql.DB
}

// NewContainerRepo returns a ContainerRepo bound to the given database.
func NewContainerRepo(db *sql.DB) *ContainerRepo { return &ContainerRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ContainerRepo) DB() *sql.DB { return r.db }

const containerCols = `id, slot_date, purpose, capacity_limit, created_at`

func scanContainer(row *sql.Row) (*model.Container, error) {
	var c model.Container
	if err := row.Scan(&c.ID, &c.SlotDate, &c.Purpose, &c.CapacityLimit, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Resolve finds or creates the single container for a (day, purpose)
// key.  The insert is conditional on the unique (slot_date, purpose)
// constraint: when it loses a race to a concurrent request, the
// duplicate-key failure is swallowed and the winner's row is read
// back, making the operation idempotent under concurrency.  The key
// must be validated by the caller; Resolve itself returns
// ErrInvalidKey only as a defensive backstop.
func (r *ContainerRepo) Resolve(ctx context.Context, day string, purpose model.Purpose, defaultCapacity uint32) (*model.Container, error) {
	if !model.ValidDay(day) {
		return nil, ErrInvalidKey
	}
	if _, ok := model.ParsePurpose(string(purpose)); !ok {
		return nil, ErrInvalidKey
	}
	const sel = `SELECT ` + containerCols + ` FROM containers WHERE slot_date = ? AND purpose = ?`
	c, err := scanContainer(r.db.QueryRowContext(ctx, sel, day, purpose))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	const ins = `INSERT INTO containers (slot_date, purpose, capacity_limit) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, ins, day, purpose, defaultCapacity); err != nil {
		if !IsDuplicateKey(err) {
			return nil, err
		}
		// Lost the insert race; the unique key guarantees the row now exists.
	}
	return scanContainer(r.db.QueryRowContext(ctx, sel, day, purpose))
}

// GetByID loads a container by primary key.  Returns
// ErrContainerNotFound when no such container exists.
func (r *ContainerRepo) GetByID(ctx context.Context, id uint64) (*model.Container, error) {
	const q = `SELECT ` + containerCols + ` FROM containers WHERE id = ?`
	c, err := scanContainer(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContainerNotFound
	}
	return c, err
}

// GetByIDTx loads a container by primary key inside an existing
// transaction.  Returns ErrContainerNotFound when absent.
func (r *ContainerRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Container, error) {
	const q = `SELECT ` + containerCols + ` FROM containers WHERE id = ?`
	var c model.Container
	err := tx.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.SlotDate, &c.Purpose, &c.CapacityLimit, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByKeyTx loads the container for a (day, purpose) key inside an
// existing transaction.  Returns sql.ErrNoRows when absent.
func (r *ContainerRepo) GetByKeyTx(ctx context.Context, tx *sql.Tx, day string, purpose model.Purpose) (*model.Container, error) {
	const q = `SELECT ` + containerCols + ` FROM containers WHERE slot_date = ? AND purpose = ?`
	var c model.Container
	err := tx.QueryRowContext(ctx, q, day, purpose).Scan(&c.ID, &c.SlotDate, &c.Purpose, &c.CapacityLimit, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LockForPlacementTx reads the container row under FOR UPDATE so the
// capacity check and the subsequent assignment insert form one atomic
// unit.  Every mutation path that consumes capacity funnels through
// this lock.
func (r *ContainerRepo) LockForPlacementTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Container, error) {
	const q = `SELECT ` + containerCols + ` FROM containers WHERE id = ? FOR UPDATE`
	var c model.Container
	err := tx.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.SlotDate, &c.Purpose, &c.CapacityLimit, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContainerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AdjustCapacityTx updates a container's limit inside the caller's
// transaction.  The new limit applies to future placements only;
// existing occupancy above a lowered limit is left intact.
func (r *ContainerRepo) AdjustCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, newLimit uint32) error {
	const q = `UPDATE containers SET capacity_limit = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, newLimit, id)
	return err
}

// ListByRange returns all containers of a purpose whose day falls in
// the inclusive [from, to] range, ordered by day.  Day strings are
// compared lexically, which is date order for the fixed-width format.
func (r *ContainerRepo) ListByRange(ctx context.Context, from, to string, purpose model.Purpose) ([]model.Container, error) {
	const q = `SELECT ` + containerCols + `
	           FROM containers
	           WHERE purpose = ? AND slot_date >= ? AND slot_date <= ?
	           ORDER BY slot_date`
	rows, err := r.db.QueryContext(ctx, q, purpose, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Container, 0)
	for rows.Next() {
		var c model.Container
		if err := rows.Scan(&c.ID, &c.SlotDate, &c.Purpose, &c.CapacityLimit, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
