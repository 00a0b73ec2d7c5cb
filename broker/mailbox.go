package broker

import "time"

// Kind identifies the notification carried by an Envelope.
type Kind string

const (
	// KindJoined announces a participant join request to the aggregator.
	KindJoined Kind = "JOINED"

	// KindUpdated carries a round payload, in either direction.
	KindUpdated Kind = "UPDATED"

	// KindStopped carries the final payload of a task.
	KindStopped Kind = "STOPPED"
)

// Role names the two consumer sides of the broker.
type Role string

const (
	RoleAggregator  Role = "aggregator"
	RoleParticipant Role = "participant"
)

// Envelope wraps an opaque payload travelling through a mailbox.
type Envelope struct {
	Kind     Kind
	Sender   string
	Payload  []byte
	QueuedAt time.Time
}

// fifo is an unbounded first-in first-out queue of envelopes.
// Not safe for concurrent use; the Store lock guards it.
type fifo struct {
	items []Envelope
}

func (q *fifo) push(e Envelope) {
	q.items = append(q.items, e)
}

func (q *fifo) pop() (Envelope, bool) {
	if len(q.items) == 0 {
		return Envelope{}, false
	}
	e := q.items[0]
	q.items[0] = Envelope{}
	q.items = q.items[1:]
	return e, true
}

func (q *fifo) len() int {
	return len(q.items)
}

// clonePayload detaches a payload from caller-owned memory.
func clonePayload(p []byte) []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
