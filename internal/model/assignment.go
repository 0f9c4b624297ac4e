package model

import "time"

// GroupKind describes whether an assignment stands alone or belongs
// to a multi-member placement sharing one group identifier.
type GroupKind string

const (
	GroupSingle GroupKind = "SINGLE"
	GroupCouple GroupKind = "COUPLE"
	GroupFamily GroupKind = "FAMILY"
)

// ParseGroupKind validates a group kind string.
func ParseGroupKind(s string) (GroupKind, bool) {
	switch GroupKind(s) {
	case GroupSingle, GroupCouple, GroupFamily:
		return GroupKind(s), true
	}
	return "", false
}

// ValidSize reports whether n members is a legal size for the kind.
// COUPLE is exactly two; FAMILY is two or more; SINGLE is exactly one.
func (k GroupKind) ValidSize(n int) bool {
	switch k {
	case GroupSingle:
		return n == 1
	case GroupCouple:
		return n == 2
	case GroupFamily:
		return n >= 2
	}
	return false
}

// LifecycleStatus tracks an assignment through its life.  PLACED rows
// and RESERVED rows both consume container capacity; EXITED rows are
// retained for audit only.
type LifecycleStatus string

const (
	StatusPlaced   LifecycleStatus = "PLACED"
	StatusReserved LifecycleStatus = "RESERVED"
	StatusExited   LifecycleStatus = "EXITED"
)

// LockStatus is an overlay independent of the lifecycle.  QUALIFIED is
// terminal: the row and its group siblings may no longer transition.
type LockStatus string

const (
	LockNone      LockStatus = "NONE"
	LockQualified LockStatus = "QUALIFIED"
)

// Disposition selects where a rejected meeting candidate's person
// record goes.
type Disposition string

const (
	ToTrash   Disposition = "TO_TRASH"   // person marked rejected, moved to trash pool
	ToPending Disposition = "TO_PENDING" // person eligible for resubmission
)

// ParseDisposition validates a disposition string.
func ParseDisposition(s string) (Disposition, bool) {
	switch Disposition(s) {
	case ToTrash, ToPending:
		return Disposition(s), true
	}
	return "", false
}

// Assignment is one person's placement record in a container.
//
// Fields:
//  ID              – primary key identifier.
//  ContainerID     – container this row occupies.
//  PersonID        – the placed person.
//  GroupKind       – SINGLE, COUPLE or FAMILY.
//  GroupID         – shared identifier across group members; nil for SINGLE.
//  RoleInGroup     – optional member role label.
//  LifecycleStatus – PLACED, RESERVED or EXITED.
//  LockStatus      – NONE or QUALIFIED (terminal).
//  OccupiedDate    – target DIKSHA day when this row participates in a
//                    forward reservation; nil otherwise.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last modification timestamp.
type Assignment struct {
	ID              uint64          `json:"id"`                      // assignments.id
	ContainerID     uint64          `json:"container_id"`            // assignments.container_id
	PersonID        uint64          `json:"person_id"`               // assignments.person_id
	GroupKind       GroupKind       `json:"group_kind"`              // assignments.group_kind
	GroupID         *string         `json:"group_id,omitempty"`      // assignments.group_id (nullable)
	RoleInGroup     *string         `json:"role_in_group,omitempty"` // assignments.role_in_group (nullable)
	LifecycleStatus LifecycleStatus `json:"lifecycle_status"`        // assignments.lifecycle_status
	LockStatus      LockStatus      `json:"lock_status"`             // assignments.lock_status
	OccupiedDate    *string         `json:"occupied_date,omitempty"` // assignments.occupied_date (nullable)
	CreatedAt       time.Time       `json:"created_at"`              // assignments.created_at
	UpdatedAt       time.Time       `json:"updated_at"`              // assignments.updated_at
}
