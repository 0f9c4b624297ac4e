// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into outbound
// notification log lines.
package queue

// CandidateConfirmedEvent is published when a meeting candidate is
// confirmed into a DIKSHA container.  It carries enough for the
// downstream notification sender to message the confirmed persons
// without querying the primary database.
type CandidateConfirmedEvent struct {
	MeetingContainerID uint64   `json:"meeting_container_id"`
	MeetingDate        string   `json:"meeting_date"`
	DikshaContainerID  uint64   `json:"diksha_container_id"`
	OccupyDate         string   `json:"occupy_date"`
	GroupKind          string   `json:"group_kind"`
	PersonIDs          []uint64 `json:"person_ids"`
	PersonNames        []string `json:"person_names"`
	DecidedBy          string   `json:"decided_by"`
	ConfirmedAt        string   `json:"confirmed_at"`
}

// AssignmentExitedEvent is published when assignments physically exit
// a container, letting downstream dashboards refresh counts without
// polling.
type AssignmentExitedEvent struct {
	ContainerID   uint64   `json:"container_id"`
	SlotDate      string   `json:"slot_date"`
	Purpose       string   `json:"purpose"`
	AssignmentIDs []uint64 `json:"assignment_ids"`
	PersonIDs     []uint64 `json:"person_ids"`
	ExitedBy      string   `json:"exited_by"`
	ExitedAt      string   `json:"exited_at"`
}
