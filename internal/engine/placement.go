package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// ResolveContainer finds or creates the single container for a (day,
// purpose) key.  Safe under concurrent calls for the same key; see
// ContainerRepo.Resolve for the constraint-backed insert.
func (e *Engine) ResolveContainer(ctx context.Context, day, purpose string) (*model.Container, error) {
	p, ok := model.ParsePurpose(purpose)
	if !ok || !model.ValidDay(day) {
		return nil, repository.ErrInvalidKey
	}
	return e.Containers.Resolve(ctx, day, p, e.DefaultCapacity)
}

// PlaceSingle places one person into a container as a SINGLE
// assignment.  Replaying the same idempotency token returns the
// originally created row without consuming capacity again.
func (e *Engine) PlaceSingle(ctx context.Context, meta Meta, containerID, personID uint64) (*model.Assignment, error) {
	rows, err := e.PlaceGroup(ctx, meta, containerID, []uint64{personID}, model.GroupSingle, nil)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// PlaceGroup atomically places a set of persons into a container.
// COUPLE and FAMILY members share one freshly generated group
// identifier and are inserted all-or-nothing: when the whole group
// does not fit, nothing is created and ErrHousefull is returned.
// Roles, when given, must align with personIDs by index.
func (e *Engine) PlaceGroup(ctx context.Context, meta Meta, containerID uint64, personIDs []uint64, kind model.GroupKind, roles []string) ([]model.Assignment, error) {
	if !kind.ValidSize(len(personIDs)) || hasDuplicates(personIDs) {
		return nil, repository.ErrInvalidKey
	}
	if roles != nil && len(roles) != len(personIDs) {
		return nil, repository.ErrInvalidKey
	}
	if ids, ok, err := e.replayed(ctx, meta); err != nil {
		return nil, err
	} else if ok {
		logReplay("place", meta.IdemKey)
		return e.Assignments.GetMany(ctx, ids)
	}

	var created []model.Assignment
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "place"); err != nil {
			return err
		}
		c, err := e.Containers.LockForPlacementTx(ctx, tx, containerID)
		if err != nil {
			return err
		}
		created, err = e.placeMembersTx(ctx, tx, c, personIDs, kind, roles, model.StatusPlaced, nil)
		if err != nil {
			return err
		}
		return e.finishTx(ctx, tx, meta, "place",
			fmt.Sprintf("placed %d person(s) as %s into %s %s", len(created), kind, c.Purpose, c.SlotDate),
			assignmentIDs(created))
	})
	if err != nil {
		if repository.IsDuplicateKey(err) && meta.IdemKey != "" {
			// Lost the idempotency race; the winner's rows are the result.
			if ids, ok, rerr := e.replayed(ctx, meta); rerr == nil && ok {
				logReplay("place", meta.IdemKey)
				return e.Assignments.GetMany(ctx, ids)
			}
		}
		return nil, err
	}
	return created, nil
}

// placeMembersTx performs the shared capacity-checked batch insert
// used by direct placement, forward reservation and shift.  The
// container row must already be locked.  Persons are re-pointed at
// the container only for PLACED rows; RESERVED rows hold a future
// seat while the person physically remains at the meeting.
func (e *Engine) placeMembersTx(ctx context.Context, tx *sql.Tx, c *model.Container, personIDs []uint64, kind model.GroupKind, roles []string, status model.LifecycleStatus, occupiedDate *string) ([]model.Assignment, error) {
	if _, err := e.Persons.GetManyTx(ctx, tx, personIDs); err != nil {
		return nil, err
	}
	if err := e.admitTx(ctx, tx, c, uint32(len(personIDs))); err != nil {
		return nil, err
	}
	var groupID *string
	if kind != model.GroupSingle {
		gid := uuid.NewString()
		groupID = &gid
	}
	created := make([]model.Assignment, 0, len(personIDs))
	for i, pid := range personIDs {
		a := model.Assignment{
			ContainerID:     c.ID,
			PersonID:        pid,
			GroupKind:       kind,
			GroupID:         groupID,
			LifecycleStatus: status,
			OccupiedDate:    occupiedDate,
		}
		if roles != nil && roles[i] != "" {
			r := roles[i]
			a.RoleInGroup = &r
		}
		if err := e.Assignments.CreateTx(ctx, tx, &a); err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	if status == model.StatusPlaced {
		if err := e.Persons.MarkPlacedTx(ctx, tx, personIDs, c.ID); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func assignmentIDs(rows []model.Assignment) []uint64 {
	out := make([]uint64, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.ID)
	}
	return out
}

func personIDsOf(rows []model.Assignment) []uint64 {
	out := make([]uint64, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.PersonID)
	}
	return out
}

func hasDuplicates(ids []uint64) bool {
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
