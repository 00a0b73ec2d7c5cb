package broker

import "time"

// TaskStatus is the lifecycle status of a task record.
type TaskStatus string

const (
	TaskCreated  TaskStatus = "CREATED"
	TaskComplete TaskStatus = "COMPLETE"
)

// Task is the metadata of a task registered since the last reset.
// The definition is held separately by the Store and only for the active task.
type Task struct {
	ID        string
	Name      string
	Status    TaskStatus
	CreatedAt time.Time
}

// MemberState is the per-participant join state.
type MemberState string

const (
	MemberUnknown MemberState = "UNKNOWN"
	MemberPending MemberState = "PENDING_JOIN"
	MemberJoined  MemberState = "JOINED"
)
