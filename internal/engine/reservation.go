package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/intake-calendar/internal/model"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// validateOccupyDate checks the forward-booking preconditions: the
// target day must be supplied, well formed, and on or after the
// meeting day.  Day strings compare lexically.
func validateOccupyDate(meetingDate, occupyDate string) error {
	if occupyDate == "" {
		return repository.ErrOccupyRequired
	}
	if !model.ValidDay(occupyDate) {
		return repository.ErrInvalidKey
	}
	if occupyDate < meetingDate {
		return &repository.OccupyBeforeMeetingError{MeetingDate: meetingDate}
	}
	return nil
}

// ReserveFutureSeat pre-books DIKSHA seats for a meeting candidate
// (single or group) ahead of physical presence.  The DIKSHA container
// for occupyDate is resolved through the registry, the seats are
// placed as RESERVED through the same capacity gate as live
// placements, and the meeting-side candidate rows are stamped with
// the occupy date so confirmation can find the reservation later.
// The reservation is not itself the candidate; it only holds the
// future seat.
func (e *Engine) ReserveFutureSeat(ctx context.Context, meta Meta, meetingContainerID uint64, personIDs []uint64, kind model.GroupKind, occupyDate string) ([]model.Assignment, error) {
	if !kind.ValidSize(len(personIDs)) || hasDuplicates(personIDs) {
		return nil, repository.ErrInvalidKey
	}
	meeting, err := e.Containers.GetByID(ctx, meetingContainerID)
	if err != nil {
		return nil, err
	}
	if meeting.Purpose != model.PurposeMeeting {
		return nil, repository.ErrNotMeetingCandidate
	}
	if err := validateOccupyDate(meeting.SlotDate, occupyDate); err != nil {
		return nil, err
	}
	if ids, ok, err := e.replayed(ctx, meta); err != nil {
		return nil, err
	} else if ok {
		logReplay("reserve", meta.IdemKey)
		return e.Assignments.GetMany(ctx, ids)
	}

	// Resolving outside the placement transaction keeps the find-or-insert
	// retry logic in one place; Resolve is idempotent under races.
	diksha, err := e.Containers.Resolve(ctx, occupyDate, model.PurposeDiksha, e.DefaultCapacity)
	if err != nil {
		return nil, err
	}

	var created []model.Assignment
	err = e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimKeyTx(ctx, tx, meta, "reserve"); err != nil {
			return err
		}
		// Lock the meeting-side candidate rows first.  A re-reserve must
		// release the previously booked seats before their occupy date is
		// overwritten; afterwards nothing could find them and the old
		// DIKSHA day's capacity would stay consumed with no release path.
		candidates, err := e.Assignments.FindByContainerPersonsTx(ctx, tx, meetingContainerID, personIDs, model.StatusPlaced)
		if err != nil {
			return err
		}
		if len(candidates) > 0 {
			if err := e.releaseReservationTx(ctx, tx, &candidates[0], personIDsOf(candidates)); err != nil {
				return err
			}
		}
		locked, err := e.Containers.LockForPlacementTx(ctx, tx, diksha.ID)
		if err != nil {
			return err
		}
		created, err = e.placeMembersTx(ctx, tx, locked, personIDs, kind, nil, model.StatusReserved, &occupyDate)
		if err != nil {
			return err
		}
		// Stamp the candidate rows so the reservation link is explicit
		// rather than a convention.
		if err := e.Assignments.StampOccupiedDateTx(ctx, tx, assignmentIDs(candidates), occupyDate); err != nil {
			return err
		}
		return e.finishTx(ctx, tx, meta, "reserve",
			fmt.Sprintf("reserved %d seat(s) in DIKSHA %s for meeting %s", len(created), occupyDate, meeting.SlotDate),
			assignmentIDs(created))
	})
	if err != nil {
		if repository.IsDuplicateKey(err) && meta.IdemKey != "" {
			if ids, ok, rerr := e.replayed(ctx, meta); rerr == nil && ok {
				logReplay("reserve", meta.IdemKey)
				return e.Assignments.GetMany(ctx, ids)
			}
		}
		return nil, err
	}
	return created, nil
}
