// Package repository defines the data access layer for the calendar
// engine together with the sentinel error values shared across
// repositories.  Handlers translate these values into specific HTTP
// responses so the UI can distinguish capacity and lock failures from
// generic errors.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a container is resolved with a
// malformed calendar day or an unrecognized purpose.  Non-retryable
// without a caller fix.
var ErrInvalidKey = errors.New("invalid container key")

// ErrHousefull is returned when a placement would push a container
// past its capacity limit at the moment of the atomic insert.  The
// caller may retry against a different day.
var ErrHousefull = errors.New("housefull")

// ErrLockedQualified is returned when a mutation touches a terminally
// qualified assignment or any of its group siblings.  Non-retryable.
var ErrLockedQualified = errors.New("locked qualified")

// ErrReservationMissing is returned when a meeting candidate is
// confirmed but no matching reserved seat exists.  It indicates an
// upstream sequencing bug and should be surfaced loudly.
var ErrReservationMissing = errors.New("reservation missing")

// ErrOccupyRequired is returned when a forward reservation is created
// without a target DIKSHA day.
var ErrOccupyRequired = errors.New("occupy date required")

// ErrContainerNotFound is returned when a container lookup by ID fails.
var ErrContainerNotFound = errors.New("container not found")

// ErrAssignmentNotFound is returned when an assignment lookup by ID fails.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrPersonNotFound is returned when a person referenced by a
// placement does not exist in the surrounding pools.
var ErrPersonNotFound = errors.New("person not found")

// ErrNotPlaced is returned when a lifecycle transition requires a
// PLACED row but the record is in another state.
var ErrNotPlaced = errors.New("assignment not in placed state")

// ErrNotMeetingCandidate is returned when a candidate-only transition
// (confirm, reject, shift) targets a row outside a MEETING container
// or one that is no longer an active candidate.
var ErrNotMeetingCandidate = errors.New("assignment is not an active meeting candidate")

// ErrQualifyNotAllowed is returned when qualification is attempted on
// a row outside a DIKSHA container.
var ErrQualifyNotAllowed = errors.New("qualify allowed only for placed diksha assignments")

// OccupyBeforeMeetingError is returned when a forward reservation
// targets a day strictly before the meeting container's day.  It
// carries the meeting day so clients can display it.
type OccupyBeforeMeetingError struct {
	MeetingDate string
}

func (e *OccupyBeforeMeetingError) Error() string {
	return fmt.Sprintf("occupy date must be on or after meeting date %s", e.MeetingDate)
}

// IsDuplicateKey reports whether err is a MySQL duplicate entry
// violation (error 1062).  The find-or-insert paths use it to detect
// a lost insert race and fall back to reading the winner's row.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
