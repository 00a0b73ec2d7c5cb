package broker

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// =============================================================================
// 🗄️ 协调状态存储
// =============================================================================

// DefaultPollInterval bounds a single wait inside a blocking receive.
const DefaultPollInterval = 50 * time.Millisecond

// Store holds the whole coordination state of the current task behind one lock.
type Store struct {
	mu sync.Mutex

	// task registry
	tasks      []Task
	definition []byte
	hasDef     bool

	// membership
	roster  []string
	members map[string]MemberState

	// mailboxes
	aggregator   fifo
	participants map[string]*fifo

	// wake is closed and replaced on every push
	wake chan struct{}

	pollInterval time.Duration
	now          func() time.Time
	newID        func() string
	observer     Observer
	logger       *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets the upper bound of one wait inside a blocking receive.
// Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithObserver registers an Observer for state-change notifications.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		newID:        newTaskID,
		observer:     nopObserver{},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "broker"))
	s.resetLocked()
	return s
}

// Reset discards the task, roster, pending joins and every mailbox.
// It is idempotent and never fails. Waiters blocked in a receive are woken.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.observer.StoreReset()
	s.logger.Info("broker state reset")
}

func (s *Store) resetLocked() {
	s.tasks = nil
	s.definition = nil
	s.hasDef = false
	s.clearMembershipLocked()
	s.notifyLocked()
}

// clearMembershipLocked drops the roster, pending joins and all mailboxes.
func (s *Store) clearMembershipLocked() {
	s.roster = nil
	s.members = make(map[string]MemberState)
	s.aggregator = fifo{}
	s.participants = make(map[string]*fifo)
	s.observer.RosterSize(0)
	s.observer.QueueDepth(RoleAggregator, 0)
	s.observer.QueueDepth(RoleParticipant, 0)
}

// notifyLocked wakes every goroutine waiting in a receive.
func (s *Store) notifyLocked() {
	if s.wake != nil {
		close(s.wake)
	}
	s.wake = make(chan struct{})
}

// participantDepthLocked sums the depth of every participant mailbox.
func (s *Store) participantDepthLocked() int {
	return lo.SumBy(lo.Values(s.participants), func(q *fifo) int { return q.len() })
}

// await runs try under the lock until it yields an envelope, fails, the
// timeout elapses or ctx is done. The lock is never held while waiting.
func (s *Store) await(ctx context.Context, role Role, timeout time.Duration, try func() (Envelope, bool, error)) (Envelope, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		s.mu.Lock()
		env, ok, err := try()
		wake := s.wake
		s.mu.Unlock()

		if err != nil {
			return Envelope{}, err
		}
		if ok {
			return env, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			// a zero timeout is a single check, not a wait that ran out
			if timeout > 0 {
				s.observer.ReceiveTimedOut(role)
			}
			return Envelope{}, &TimedOutError{Elapsed: time.Since(start), Requested: timeout}
		}

		timer := time.NewTimer(min(s.pollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Envelope{}, ctx.Err()
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Stats is a point-in-time summary of the Store.
type Stats struct {
	Tasks            int    `json:"tasks"`
	ActiveTask       string `json:"active_task,omitempty"`
	Roster           int    `json:"roster"`
	PendingJoins     int    `json:"pending_joins"`
	AggregatorQueue  int    `json:"aggregator_queue"`
	ParticipantQueue int    `json:"participant_queue"`
}

// Stats returns the current summary.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Tasks:            len(s.tasks),
		Roster:           len(s.roster),
		PendingJoins:     lo.CountBy(lo.Values(s.members), func(m MemberState) bool { return m == MemberPending }),
		AggregatorQueue:  s.aggregator.len(),
		ParticipantQueue: s.participantDepthLocked(),
	}
	if len(s.tasks) > 0 {
		st.ActiveTask = s.tasks[len(s.tasks)-1].Name
	}
	return st
}
