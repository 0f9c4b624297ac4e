package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/queue"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// groupHasQualified reports whether any member of a freshly locked
// group carries the terminal QUALIFIED lock.  One qualified member
// blocks group-wide exit even though qualification itself is
// per-member.
func groupHasQualified(members []model.Assignment) bool {
	for _, m := range members {
		if m.LockStatus == model.LockQualified {
			return true
		}
	}
	return false
}

// activeOf filters a locked group down to the members in the given
// lifecycle status.
func activeOf(members []model.Assignment, status model.LifecycleStatus) []model.Assignment {
	out := make([]model.Assignment, 0, len(members))
	for _, m := range members {
		if m.LifecycleStatus == status {
			out = append(out, m)
		}
	}
	return out
}

// Exit marks a physical exit: the assignment and every PLACED group
// sibling become EXITED and their persons return to the active,
// unplaced pool state.  The lock invariant is re-verified on the
// freshest rows under FOR UPDATE, not on the caller's earlier read,
// so a qualify racing this exit cannot be lost.
func (e *Engine) Exit(ctx context.Context, meta Meta, assignmentID uint64) error {
	if _, ok, err := e.replayed(ctx, meta); err != nil {
		return err
	} else if ok {
		logReplay("exit", meta.IdemKey)
		return nil
	}
	var ev queue.AssignmentExitedEvent
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "exit"); err != nil {
			return err
		}
		a, err := e.Assignments.LockByIDTx(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		members, err := e.Assignments.LockGroupTx(ctx, tx, a)
		if err != nil {
			return err
		}
		if groupHasQualified(members) {
			return repository.ErrLockedQualified
		}
		if a.LifecycleStatus != model.StatusPlaced {
			return repository.ErrNotPlaced
		}
		exiting := activeOf(members, model.StatusPlaced)
		ids := assignmentIDs(exiting)
		n, err := e.Assignments.UpdateLifecycleTx(ctx, tx, ids, model.StatusPlaced, model.StatusExited)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return repository.ErrNotPlaced
		}
		if err := e.Persons.MarkUnplacedTx(ctx, tx, personIDsOf(exiting)); err != nil {
			return err
		}
		c, err := e.Containers.GetByIDTx(ctx, tx, a.ContainerID)
		if err != nil {
			return err
		}
		ev = queue.AssignmentExitedEvent{
			ContainerID:   c.ID,
			SlotDate:      c.SlotDate,
			Purpose:       string(c.Purpose),
			AssignmentIDs: ids,
			PersonIDs:     personIDsOf(exiting),
			ExitedBy:      meta.Actor,
			ExitedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		return e.finishTx(ctx, tx, meta, "exit",
			fmt.Sprintf("exited %d assignment(s) from %s %s", len(ids), c.Purpose, c.SlotDate), ids)
	})
	if err != nil {
		if repository.IsDuplicateKey(err) && meta.IdemKey != "" {
			logReplay("exit", meta.IdemKey)
			return nil
		}
		return err
	}
	e.notifyExited(ctx, ev)
	return nil
}

// Qualify sets the terminal QUALIFIED lock on one PLACED assignment
// in a DIKSHA container.  The lifecycle condition is embedded in the
// UPDATE itself so a concurrent exit cannot slip between read and
// write.  Siblings are not propagated to; each member qualifies
// independently.
func (e *Engine) Qualify(ctx context.Context, meta Meta, assignmentID uint64) error {
	if _, ok, err := e.replayed(ctx, meta); err != nil {
		return err
	} else if ok {
		logReplay("qualify", meta.IdemKey)
		return nil
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "qualify"); err != nil {
			return err
		}
		a, err := e.Assignments.LockByIDTx(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		c, err := e.Containers.GetByIDTx(ctx, tx, a.ContainerID)
		if err != nil {
			return err
		}
		if c.Purpose != model.PurposeDiksha {
			return repository.ErrQualifyNotAllowed
		}
		if a.LockStatus == model.LockQualified {
			// Already terminal; nothing further to do.
			return e.finishTx(ctx, tx, meta, "qualify", "qualify repeated on already-qualified assignment", []uint64{a.ID})
		}
		n, err := e.Assignments.MarkQualifiedTx(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotPlaced
		}
		return e.finishTx(ctx, tx, meta, "qualify",
			fmt.Sprintf("qualified assignment %d in DIKSHA %s", a.ID, c.SlotDate), []uint64{a.ID})
	})
	if err != nil && repository.IsDuplicateKey(err) && meta.IdemKey != "" {
		logReplay("qualify", meta.IdemKey)
		return nil
	}
	return err
}

// ConfirmResult is what a confirmation produces: the promoted DIKSHA
// assignments and the archive rows written for each group member.
type ConfirmResult struct {
	Promoted []model.Assignment    `json:"promoted"`
	History  []model.HistoryRecord `json:"history"`
	Replayed bool                  `json:"-"`
}

// Confirm finalizes a meeting candidate.  The matching RESERVED rows
// in the target DIKSHA container (same persons, same occupied date)
// are promoted to PLACED, one CONFIRMED history row is archived per
// member, and the meeting-side candidate rows are retired.  A missing
// reservation is a sequencing bug upstream and surfaces as
// ErrReservationMissing rather than silently creating seats.
func (e *Engine) Confirm(ctx context.Context, meta Meta, meetingAssignmentID uint64) (*ConfirmResult, error) {
	if ids, ok, err := e.replayed(ctx, meta); err != nil {
		return nil, err
	} else if ok {
		logReplay("confirm", meta.IdemKey)
		promoted, err := e.Assignments.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		return &ConfirmResult{Promoted: promoted, Replayed: true}, nil
	}

	var res ConfirmResult
	var ev queue.CandidateConfirmedEvent
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "confirm"); err != nil {
			return err
		}
		a, err := e.Assignments.LockByIDTx(ctx, tx, meetingAssignmentID)
		if err != nil {
			return err
		}
		meeting, err := e.Containers.GetByIDTx(ctx, tx, a.ContainerID)
		if err != nil {
			return err
		}
		if meeting.Purpose != model.PurposeMeeting || a.LifecycleStatus != model.StatusPlaced {
			return repository.ErrNotMeetingCandidate
		}
		members, err := e.Assignments.LockGroupTx(ctx, tx, a)
		if err != nil {
			return err
		}
		candidates := activeOf(members, model.StatusPlaced)
		if a.OccupiedDate == nil {
			return repository.ErrReservationMissing
		}
		occupy := *a.OccupiedDate
		diksha, err := e.Containers.GetByKeyTx(ctx, tx, occupy, model.PurposeDiksha)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrReservationMissing
			}
			return err
		}
		pids := personIDsOf(candidates)
		reserved, err := e.Assignments.FindReservedTx(ctx, tx, diksha.ID, pids, occupy)
		if err != nil {
			return err
		}
		if len(reserved) != len(candidates) {
			return repository.ErrReservationMissing
		}
		resIDs := assignmentIDs(reserved)
		n, err := e.Assignments.UpdateLifecycleTx(ctx, tx, resIDs, model.StatusReserved, model.StatusPlaced)
		if err != nil {
			return err
		}
		if n != int64(len(resIDs)) {
			return repository.ErrReservationMissing
		}
		for _, r := range reserved {
			r.LifecycleStatus = model.StatusPlaced
			res.Promoted = append(res.Promoted, r)
		}
		persons, err := e.Persons.GetManyTx(ctx, tx, pids)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(candidates))
		for _, m := range candidates {
			p := persons[m.PersonID]
			h := model.HistoryRecord{
				SourceContainerID: meeting.ID,
				PersonID:          p.ID,
				PersonName:        p.FullName,
				PersonAddress:     p.Address,
				PersonGender:      p.Gender,
				GroupKind:         m.GroupKind,
				RoleInGroup:       m.RoleInGroup,
				OccupiedDate:      m.OccupiedDate,
				Outcome:           model.OutcomeConfirmed,
				DecidedBy:         meta.Actor,
			}
			if err := e.History.AppendTx(ctx, tx, &h); err != nil {
				return err
			}
			res.History = append(res.History, h)
			names = append(names, p.FullName)
		}
		// Retire the meeting-side candidate rows.  They no longer count
		// against meeting capacity; their trace lives in history.
		if _, err := e.Assignments.UpdateLifecycleTx(ctx, tx, assignmentIDs(candidates), model.StatusPlaced, model.StatusExited); err != nil {
			return err
		}
		if err := e.Persons.MarkPlacedTx(ctx, tx, pids, diksha.ID); err != nil {
			return err
		}
		ev = queue.CandidateConfirmedEvent{
			MeetingContainerID: meeting.ID,
			MeetingDate:        meeting.SlotDate,
			DikshaContainerID:  diksha.ID,
			OccupyDate:         occupy,
			GroupKind:          string(a.GroupKind),
			PersonIDs:          pids,
			PersonNames:        names,
			DecidedBy:          meta.Actor,
			ConfirmedAt:        time.Now().UTC().Format(time.RFC3339),
		}
		return e.finishTx(ctx, tx, meta, "confirm",
			fmt.Sprintf("confirmed %d candidate(s) from meeting %s into DIKSHA %s", len(candidates), meeting.SlotDate, occupy),
			resIDs)
	})
	if err != nil {
		if repository.IsDuplicateKey(err) && meta.IdemKey != "" {
			if ids, ok, rerr := e.replayed(ctx, meta); rerr == nil && ok {
				logReplay("confirm", meta.IdemKey)
				promoted, gerr := e.Assignments.GetMany(ctx, ids)
				if gerr != nil {
					return nil, gerr
				}
				return &ConfirmResult{Promoted: promoted, Replayed: true}, nil
			}
		}
		return nil, err
	}
	e.notifyConfirmed(ctx, ev)
	return &res, nil
}

// Reject disposes of a meeting candidate.  Any reserved DIKSHA seats
// for the group are released first (freeing that day's capacity),
// then the candidate rows are retired and the persons move to the
// trash pool (marked rejected) or pending pool (eligible for
// resubmission).  A BYPASSED history row preserves the audit trail.
func (e *Engine) Reject(ctx context.Context, meta Meta, meetingAssignmentID uint64, disposition model.Disposition) error {
	if _, ok, err := e.replayed(ctx, meta); err != nil {
		return err
	} else if ok {
		logReplay("reject", meta.IdemKey)
		return nil
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "reject"); err != nil {
			return err
		}
		a, err := e.Assignments.LockByIDTx(ctx, tx, meetingAssignmentID)
		if err != nil {
			return err
		}
		meeting, err := e.Containers.GetByIDTx(ctx, tx, a.ContainerID)
		if err != nil {
			return err
		}
		if meeting.Purpose != model.PurposeMeeting || a.LifecycleStatus != model.StatusPlaced {
			return repository.ErrNotMeetingCandidate
		}
		members, err := e.Assignments.LockGroupTx(ctx, tx, a)
		if err != nil {
			return err
		}
		candidates := activeOf(members, model.StatusPlaced)
		pids := personIDsOf(candidates)
		if err := e.releaseReservationTx(ctx, tx, a, pids); err != nil {
			return err
		}
		ids := assignmentIDs(candidates)
		if _, err := e.Assignments.UpdateLifecycleTx(ctx, tx, ids, model.StatusPlaced, model.StatusExited); err != nil {
			return err
		}
		switch disposition {
		case model.ToTrash:
			err = e.Persons.MoveToPoolTx(ctx, tx, pids, model.PoolTrash, model.PoolStateRejected)
		case model.ToPending:
			err = e.Persons.MoveToPoolTx(ctx, tx, pids, model.PoolPending, model.PoolStateResubmit)
		default:
			err = repository.ErrInvalidKey
		}
		if err != nil {
			return err
		}
		persons, err := e.Persons.GetManyTx(ctx, tx, pids)
		if err != nil {
			return err
		}
		for _, m := range candidates {
			p := persons[m.PersonID]
			h := model.HistoryRecord{
				SourceContainerID: meeting.ID,
				PersonID:          p.ID,
				PersonName:        p.FullName,
				PersonAddress:     p.Address,
				PersonGender:      p.Gender,
				GroupKind:         m.GroupKind,
				RoleInGroup:       m.RoleInGroup,
				OccupiedDate:      m.OccupiedDate,
				Outcome:           model.OutcomeBypassed,
				DecidedBy:         meta.Actor,
			}
			if err := e.History.AppendTx(ctx, tx, &h); err != nil {
				return err
			}
		}
		return e.finishTx(ctx, tx, meta, "reject",
			fmt.Sprintf("rejected %d candidate(s) from meeting %s (%s)", len(candidates), meeting.SlotDate, disposition), ids)
	})
	if err != nil && repository.IsDuplicateKey(err) && meta.IdemKey != "" {
		logReplay("reject", meta.IdemKey)
		return nil
	}
	return err
}

// releaseReservationTx frees any RESERVED DIKSHA seats linked to a
// candidate group.  Missing reservations are fine here: a candidate
// without a forward booking simply has nothing to release.
func (e *Engine) releaseReservationTx(ctx context.Context, tx *sql.Tx, a *model.Assignment, personIDs []uint64) error {
	if a.OccupiedDate == nil {
		return nil
	}
	diksha, err := e.Containers.GetByKeyTx(ctx, tx, *a.OccupiedDate, model.PurposeDiksha)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	reserved, err := e.Assignments.FindReservedTx(ctx, tx, diksha.ID, personIDs, *a.OccupiedDate)
	if err != nil {
		return err
	}
	_, err = e.Assignments.UpdateLifecycleTx(ctx, tx, assignmentIDs(reserved), model.StatusReserved, model.StatusExited)
	return err
}

// Shift re-targets a meeting candidate: the old reservation (if any)
// is released and the old candidate rows retired, then the group is
// placed fresh into the new (day, purpose) container — all in one
// transaction, so the person is never observably unplaced and a
// Housefull on the new target rolls everything back.  When the new
// target is a MEETING day and newOccupyDate is given, a fresh DIKSHA
// reservation is booked in the same breath.
func (e *Engine) Shift(ctx context.Context, meta Meta, meetingAssignmentID uint64, newDay, newPurpose, newOccupyDate string) ([]model.Assignment, error) {
	p, ok := model.ParsePurpose(newPurpose)
	if !ok || !model.ValidDay(newDay) {
		return nil, repository.ErrInvalidKey
	}
	if newOccupyDate != "" {
		if p != model.PurposeMeeting {
			return nil, repository.ErrInvalidKey
		}
		if err := validateOccupyDate(newDay, newOccupyDate); err != nil {
			return nil, err
		}
	}
	if ids, ok, err := e.replayed(ctx, meta); err != nil {
		return nil, err
	} else if ok {
		logReplay("shift", meta.IdemKey)
		return e.Assignments.GetMany(ctx, ids)
	}

	target, err := e.Containers.Resolve(ctx, newDay, p, e.DefaultCapacity)
	if err != nil {
		return nil, err
	}
	var diksha *model.Container
	if newOccupyDate != "" {
		if diksha, err = e.Containers.Resolve(ctx, newOccupyDate, model.PurposeDiksha, e.DefaultCapacity); err != nil {
			return nil, err
		}
	}

	var created []model.Assignment
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "shift"); err != nil {
			return err
		}
		a, err := e.Assignments.LockByIDTx(ctx, tx, meetingAssignmentID)
		if err != nil {
			return err
		}
		meeting, err := e.Containers.GetByIDTx(ctx, tx, a.ContainerID)
		if err != nil {
			return err
		}
		if meeting.Purpose != model.PurposeMeeting || a.LifecycleStatus != model.StatusPlaced {
			return repository.ErrNotMeetingCandidate
		}
		members, err := e.Assignments.LockGroupTx(ctx, tx, a)
		if err != nil {
			return err
		}
		if groupHasQualified(members) {
			return repository.ErrLockedQualified
		}
		candidates := activeOf(members, model.StatusPlaced)
		pids := personIDsOf(candidates)
		roles := rolesOf(candidates)
		if err := e.releaseReservationTx(ctx, tx, a, pids); err != nil {
			return err
		}
		if _, err := e.Assignments.UpdateLifecycleTx(ctx, tx, assignmentIDs(candidates), model.StatusPlaced, model.StatusExited); err != nil {
			return err
		}
		locked, err := e.Containers.LockForPlacementTx(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		created, err = e.placeMembersTx(ctx, tx, locked, pids, a.GroupKind, roles, model.StatusPlaced, nil)
		if err != nil {
			return err
		}
		if diksha != nil {
			lockedDiksha, err := e.Containers.LockForPlacementTx(ctx, tx, diksha.ID)
			if err != nil {
				return err
			}
			reservedRows, err := e.placeMembersTx(ctx, tx, lockedDiksha, pids, a.GroupKind, nil, model.StatusReserved, &newOccupyDate)
			if err != nil {
				return err
			}
			if err := e.Assignments.StampOccupiedDateTx(ctx, tx, assignmentIDs(created), newOccupyDate); err != nil {
				return err
			}
			created = append(created, reservedRows...)
		}
		return e.finishTx(ctx, tx, meta, "shift",
			fmt.Sprintf("shifted %d candidate(s) from meeting %s to %s %s", len(pids), meeting.SlotDate, p, newDay),
			assignmentIDs(created))
	})
	if err != nil {
		if repository.IsDuplicateKey(err) && meta.IdemKey != "" {
			if ids, ok, rerr := e.replayed(ctx, meta); rerr == nil && ok {
				logReplay("shift", meta.IdemKey)
				return e.Assignments.GetMany(ctx, ids)
			}
		}
		return nil, err
	}
	return created, nil
}

func rolesOf(rows []model.Assignment) []string {
	any := false
	out := make([]string, len(rows))
	for i, a := range rows {
		if a.RoleInGroup != nil {
			out[i] = *a.RoleInGroup
			any = true
		}
	}
	if !any {
		return nil
	}
	return out
}
