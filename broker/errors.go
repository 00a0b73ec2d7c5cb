package broker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateJoin is returned when a participant joins while a join is
	// pending or already confirmed.
	ErrDuplicateJoin = errors.New("participant already joined or join pending")

	// ErrNotJoined is returned when an unconfirmed participant sends an update.
	ErrNotJoined = errors.New("participant has not joined the task")

	// ErrUnknownParticipant is returned when a participant has no mailbox.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrDuplicateTask is returned when a task name was already used since the last reset.
	ErrDuplicateTask = errors.New("task already exists")

	// ErrInvalidTask is returned for a task without a name.
	ErrInvalidTask = errors.New("task name is required")

	// ErrInvalidParticipant is returned for an empty participant identity.
	ErrInvalidParticipant = errors.New("participant id is required")

	// ErrTimedOut matches every *TimedOutError via errors.Is.
	ErrTimedOut = errors.New("timed out")
)

// TimedOutError reports a receive that found nothing before its timeout.
type TimedOutError struct {
	Elapsed   time.Duration
	Requested time.Duration
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("timeout when receiving data (%f over %f seconds)",
		e.Elapsed.Seconds(), e.Requested.Seconds())
}

// Is lets errors.Is(err, ErrTimedOut) match.
func (e *TimedOutError) Is(target error) bool {
	return target == ErrTimedOut
}

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut)
}
