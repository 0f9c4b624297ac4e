package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// DaySummary is the per-day aggregate the calendar grid renders:
// gender breakdown of placed occupants plus the count of archived
// decisions originating from that day's container.
type DaySummary struct {
	ContainerID   uint64 `json:"container_id"`
	CapacityLimit uint32 `json:"capacity_limit"`
	Male          uint32 `json:"male"`
	Female        uint32 `json:"female"`
	Other         uint32 `json:"other"`
	Total         uint32 `json:"total"`
	HistoryCount  uint32 `json:"history_count"`
}

// Summarize produces per-day aggregates for every container of a
// purpose in the inclusive [from, to] range.  The reads take no locks
// and may observe slightly stale counts; the projection is advisory
// and never blocks writers.
func (e *Engine) Summarize(ctx context.Context, from, to, purpose string) (map[string]DaySummary, error) {
	p, ok := model.ParsePurpose(purpose)
	if !ok || !model.ValidDay(from) || !model.ValidDay(to) || from > to {
		return nil, repository.ErrInvalidKey
	}
	containers, err := e.Containers.ListByRange(ctx, from, to, p)
	if err != nil {
		return nil, err
	}
	out := make(map[string]DaySummary, len(containers))
	for _, c := range containers {
		out[c.SlotDate] = DaySummary{ContainerID: c.ID, CapacityLimit: c.CapacityLimit}
	}
	genders, err := e.Assignments.GenderCountsByRange(ctx, from, to, p)
	if err != nil {
		return nil, err
	}
	for _, gc := range genders {
		s, ok := out[gc.Day]
		if !ok {
			continue
		}
		switch gc.Gender {
		case model.GenderMale:
			s.Male += gc.Count
		case model.GenderFemale:
			s.Female += gc.Count
		default:
			s.Other += gc.Count
		}
		s.Total += gc.Count
		out[gc.Day] = s
	}
	hist, err := e.History.CountsByRange(ctx, from, to, p)
	if err != nil {
		return nil, err
	}
	for day, n := range hist {
		if s, ok := out[day]; ok {
			s.HistoryCount = n
			out[day] = s
		}
	}
	return out, nil
}

// ContainerDetail is the full view of one container for the dashboard
// detail tab: live occupants, optionally the forward reservations and
// the archived decision history.
type ContainerDetail struct {
	Container *model.Container              `json:"container"`
	Placed    []repository.AssignmentDetail `json:"placed"`
	Reserved  []repository.AssignmentDetail `json:"reserved,omitempty"`
	History   []model.HistoryRecord         `json:"history,omitempty"`
}

// FetchContainerDetail loads a container with its placed occupants
// and, when requested, its reserved seats and history rows.
func (e *Engine) FetchContainerDetail(ctx context.Context, containerID uint64, includeReserved, includeHistory bool) (*ContainerDetail, error) {
	c, err := e.Containers.GetByID(ctx, containerID)
	if err != nil {
		return nil, err
	}
	det := &ContainerDetail{Container: c}
	if det.Placed, err = e.Assignments.ListDetailByContainer(ctx, containerID, model.StatusPlaced); err != nil {
		return nil, err
	}
	if includeReserved {
		if det.Reserved, err = e.Assignments.ListDetailByContainer(ctx, containerID, model.StatusReserved); err != nil {
			return nil, err
		}
	}
	if includeHistory {
		if det.History, err = e.History.ListBySource(ctx, containerID); err != nil {
			return nil, err
		}
	}
	return det, nil
}

// AdjustCapacity changes a container's limit.  Privileged; audited and
// replay-protected like every other mutation.  Lowering the limit
// below current occupancy is allowed and only constrains future
// placements.
func (e *Engine) AdjustCapacity(ctx context.Context, meta Meta, containerID uint64, newLimit uint32) error {
	if newLimit == 0 {
		return repository.ErrInvalidKey
	}
	if _, ok, err := e.replayed(ctx, meta); err != nil {
		return err
	} else if ok {
		logReplay("adjust_capacity", meta.IdemKey)
		return nil
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "adjust_capacity"); err != nil {
			return err
		}
		c, err := e.Containers.LockForPlacementTx(ctx, tx, containerID)
		if err != nil {
			return err
		}
		if err := e.Containers.AdjustCapacityTx(ctx, tx, c.ID, newLimit); err != nil {
			return err
		}
		return e.finishTx(ctx, tx, meta, "adjust_capacity",
			fmt.Sprintf("capacity of %s %s set to %d (was %d)", c.Purpose, c.SlotDate, newLimit, c.CapacityLimit), nil)
	})
	if err != nil && repository.IsDuplicateKey(err) && meta.IdemKey != "" {
		logReplay("adjust_capacity", meta.IdemKey)
		return nil
	}
	return err
}
