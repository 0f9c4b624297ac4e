package engine

import (
	"context"
	"database/sql"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// AdmitPreview is the read-only capacity view returned to the UI
// before a placement attempt.  It carries the same numbers the
// transactional check would use, but without locks, so the answer may
// be stale by the time the placement runs.
type AdmitPreview struct {
	ContainerID   uint64 `json:"container_id"`
	CapacityLimit uint32 `json:"capacity_limit"`
	Used          uint32 `json:"used"`
	Requested     uint32 `json:"requested"`
	Admit         bool   `json:"admit"`
}

// PreviewAdmit reports whether a group of the given size would fit
// the container right now.  Advisory only; the authoritative check
// happens inside the placement transaction.
func (e *Engine) PreviewAdmit(ctx context.Context, containerID uint64, groupSize uint32) (*AdmitPreview, error) {
	c, err := e.Containers.GetByID(ctx, containerID)
	if err != nil {
		return nil, err
	}
	used, err := e.Assignments.CountActive(ctx, containerID)
	if err != nil {
		return nil, err
	}
	return &AdmitPreview{
		ContainerID:   c.ID,
		CapacityLimit: c.CapacityLimit,
		Used:          used,
		Requested:     groupSize,
		Admit:         used+groupSize <= c.CapacityLimit,
	}, nil
}

// admitTx is the authoritative capacity gate.  The container row must
// already be held under FOR UPDATE by the caller, which makes the
// count and the subsequent inserts one atomic unit: two placements
// racing on the same container serialize on the row lock, so the sum
// of PLACED and RESERVED rows can never exceed the limit.
func (e *Engine) admitTx(ctx context.Context, tx *sql.Tx, c *model.Container, groupSize uint32) error {
	used, err := e.Assignments.CountActiveTx(ctx, tx, c.ID)
	if err != nil {
		return err
	}
	if used+groupSize > c.CapacityLimit {
		return repository.ErrHousefull
	}
	return nil
}
