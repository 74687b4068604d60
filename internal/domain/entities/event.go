package entities

import "time"

// ChangeOp names the mutation that produced a ChangeEvent.
type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeUpdated ChangeOp = "updated"
	ChangeDeleted ChangeOp = "deleted"
)

// ChangeEvent announces a content mutation to other sessions.
type ChangeEvent struct {
	Op       ChangeOp  `json:"op"`
	Kind     Kind      `json:"kind"`
	WorldID  string    `json:"world_id"`
	EntityID string    `json:"id"`
	At       time.Time `json:"at"`
}
