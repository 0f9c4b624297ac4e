package model

import "time"

// Outcome is the terminal decision recorded for a meeting candidate.
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeBypassed  Outcome = "BYPASSED"
)

// HistoryRecord is an immutable archive row written once per meeting
// candidate terminal decision.  It snapshots the person at decision
// time and is never read for live capacity accounting.
type HistoryRecord struct {
	ID                uint64    `json:"id"`                      // history_records.id
	SourceContainerID uint64    `json:"source_container_id"`     // the meeting container that produced the decision
	PersonID          uint64    `json:"person_id"`               // person the snapshot belongs to
	PersonName        string    `json:"person_name"`             // name at decision time
	PersonAddress     string    `json:"person_address"`          // address at decision time
	PersonGender      Gender    `json:"person_gender"`           // gender at decision time
	GroupKind         GroupKind `json:"group_kind"`              // group kind of the candidate row
	RoleInGroup       *string   `json:"role_in_group,omitempty"` // optional member role
	OccupiedDate      *string   `json:"occupied_date,omitempty"` // reserved DIKSHA day, when one existed
	Outcome           Outcome   `json:"outcome"`                 // CONFIRMED or BYPASSED
	DecidedAt         time.Time `json:"decided_at"`              // decision timestamp
	DecidedBy         string    `json:"decided_by"`              // actor label forwarded by the caller
}
