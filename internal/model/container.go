package model

import "time"

// Purpose classifies what a calendar container is for.  MEETING
// containers hold candidates under evaluation; DIKSHA containers hold
// participants of the eventual event.  Exactly one container exists
// per (day, purpose) pair.
type Purpose string

const (
	PurposeMeeting Purpose = "MEETING" // candidate evaluation day
	PurposeDiksha  Purpose = "DIKSHA"  // the eventual event day
)

// ParsePurpose normalizes and validates a purpose string.  The second
// return value is false when the input is not a recognized purpose.
func ParsePurpose(s string) (Purpose, bool) {
	switch Purpose(s) {
	case PurposeMeeting:
		return PurposeMeeting, true
	case PurposeDiksha:
		return PurposeDiksha, true
	}
	return "", false
}

// DayLayout is the fixed calendar-day format used throughout the
// engine.  Days are stored as zero-padded YYYY-MM-DD strings, so
// lexical comparison of two valid days is date order.
const DayLayout = "2006-01-02"

// ValidDay reports whether s is a well-formed calendar day.  The
// round-trip check rejects inputs that time.Parse would normalize
// (e.g. "2025-3-10").
func ValidDay(s string) bool {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return false
	}
	return t.Format(DayLayout) == s
}

// Container is a capacity-bounded bucket for one (day, purpose) pair.
//
// Fields:
//  ID            – primary key identifier.
//  SlotDate      – calendar day key (YYYY-MM-DD).
//  Purpose       – MEETING or DIKSHA.
//  CapacityLimit – maximum count of PLACED + RESERVED assignments.
//  CreatedAt     – creation timestamp.
type Container struct {
	ID            uint64    `json:"id"`             // containers.id
	SlotDate      string    `json:"date"`           // containers.slot_date
	Purpose       Purpose   `json:"purpose"`        // containers.purpose
	CapacityLimit uint32    `json:"capacity_limit"` // containers.capacity_limit
	CreatedAt     time.Time `json:"created_at"`     // containers.created_at
}
