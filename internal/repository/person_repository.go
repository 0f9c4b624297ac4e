package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// PersonRepo gives the engine its narrow window into the externally
// owned person records: identity and gender reads for snapshots and
// summaries, plus the pool-membership writes that accompany lifecycle
// transitions.  Profile fields are never written here.
type PersonRepo struct {
	db *sql.DB
}

// NewPersonRepo returns a PersonRepo bound to the given database.
func NewPersonRepo(db *sql.DB) *PersonRepo { return &PersonRepo{db: db} }

// GetManyTx loads the persons with the given IDs inside a
// transaction.  Returns ErrPersonNotFound unless every requested ID
// resolves, since placements must never reference missing people.
func (r *PersonRepo) GetManyTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]model.Person, error) {
	if len(ids) == 0 {
		return map[uint64]model.Person{}, nil
	}
	query := `SELECT id, full_name, gender, address, pool, pool_state, current_container_id, updated_at
	          FROM persons WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64]model.Person, len(ids))
	for rows.Next() {
		var p model.Person
		var cur sql.NullInt64
		if err := rows.Scan(&p.ID, &p.FullName, &p.Gender, &p.Address, &p.Pool, &p.PoolState, &cur, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if cur.Valid {
			v := uint64(cur.Int64)
			p.CurrentContainerID = &v
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, ErrPersonNotFound
	}
	return out, nil
}

// MarkPlacedTx points the persons at their current container and
// flags them as placed.  Coupled write performed in the same
// transaction as the placement insert.
func (r *PersonRepo) MarkPlacedTx(ctx context.Context, tx *sql.Tx, ids []uint64, containerID uint64) error {
	return r.updatePoolTx(ctx, tx, ids,
		`UPDATE persons SET pool_state = 'PLACED', current_container_id = ? WHERE id IN (%s)`,
		containerID)
}

// MarkUnplacedTx returns the persons to the active, unplaced state
// with no current container.  Used on exit.
func (r *PersonRepo) MarkUnplacedTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	return r.updatePoolTx(ctx, tx, ids,
		`UPDATE persons SET pool_state = 'ACTIVE_UNPLACED', current_container_id = NULL WHERE id IN (%s)`)
}

// MoveToPoolTx relocates the persons between pools on candidate
// rejection: TRASH with a rejected marker, or PENDING marked eligible
// for resubmission.
func (r *PersonRepo) MoveToPoolTx(ctx context.Context, tx *sql.Tx, ids []uint64, pool model.Pool, state model.PoolState) error {
	return r.updatePoolTx(ctx, tx, ids,
		`UPDATE persons SET pool = ?, pool_state = ?, current_container_id = NULL WHERE id IN (%s)`,
		pool, state)
}

func (r *PersonRepo) updatePoolTx(ctx context.Context, tx *sql.Tx, ids []uint64, tmpl string, fixed ...interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(tmpl, placeholders(len(ids)))
	args := make([]interface{}, 0, len(fixed)+len(ids))
	args = append(args, fixed...)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n < int64(len(ids)) {
		// Rows already in the target state do not count as affected in
		// MySQL, so a short count alone is not an error.
		if _, err := r.GetManyTx(ctx, tx, ids); err != nil {
			return err
		}
	}
	return nil
}

// GetByID loads a single person record outside of a transaction.
func (r *PersonRepo) GetByID(ctx context.Context, id uint64) (*model.Person, error) {
	const q = `SELECT id, full_name, gender, address, pool, pool_state, current_container_id, updated_at
	           FROM persons WHERE id = ?`
	var p model.Person
	var cur sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.FullName, &p.Gender, &p.Address,
		&p.Pool, &p.PoolState, &cur, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, err
	}
	if cur.Valid {
		v := uint64(cur.Int64)
		p.CurrentContainerID = &v
	}
	return &p, nil
}
