package model

import "time"

// Gender is read from the person record for summary aggregation.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Pool names the surrounding CRUD pools a person record can live in.
// The engine never owns profile fields; it only reads identity and
// gender and writes back pool membership as a side effect of
// lifecycle transitions.
type Pool string

const (
	PoolToday   Pool = "TODAY"
	PoolPending Pool = "PENDING"
	PoolSitting Pool = "SITTING"
	PoolTrash   Pool = "TRASH"
)

// PoolState records how the person currently relates to the calendar.
type PoolState string

const (
	PoolStateUnplaced PoolState = "ACTIVE_UNPLACED" // active, no current container
	PoolStatePlaced   PoolState = "PLACED"          // currently placed in a container
	PoolStateRejected PoolState = "REJECTED"        // rejected, resting in trash pool
	PoolStateResubmit PoolState = "RESUBMIT"        // eligible for resubmission
)

// Person mirrors the externally-owned person record, restricted to
// the fields the engine reads and the pool fields it writes.
type Person struct {
	ID                 uint64    `json:"id"`                             // persons.id
	FullName           string    `json:"full_name"`                      // persons.full_name
	Gender             Gender    `json:"gender"`                         // persons.gender
	Address            string    `json:"address"`                        // persons.address
	Pool               Pool      `json:"pool"`                           // persons.pool
	PoolState          PoolState `json:"pool_state"`                     // persons.pool_state
	CurrentContainerID *uint64   `json:"current_container_id,omitempty"` // persons.current_container_id (nullable)
	UpdatedAt          time.Time `json:"updated_at"`                     // persons.updated_at
}
