package broker

import (
	"fmt"

	"go.uber.org/zap"
)

// Join requests membership for id. The request is queued for the aggregator as
// a JOINED envelope; id enters the roster only once the aggregator drains it.
func (s *Store) Join(id string) error {
	if id == "" {
		return ErrInvalidParticipant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state := s.memberStateLocked(id); state != MemberUnknown {
		s.observer.JoinRejected()
		return fmt.Errorf("%w: %s is %s", ErrDuplicateJoin, id, state)
	}

	s.members[id] = MemberPending
	s.pushAggregatorLocked(Envelope{Kind: KindJoined, Sender: id})

	s.logger.Debug("join requested", zap.String("participant", id))
	return nil
}

// Participants returns a snapshot of the roster in confirmation order.
func (s *Store) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.roster))
	copy(out, s.roster)
	return out
}

// JoinedTasks returns the task list when id is a confirmed member and an empty
// slice otherwise. The result is never nil.
func (s *Store) JoinedTasks(id string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[id] != MemberJoined {
		return []Task{}
	}
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// MemberState reports where id stands in the join handshake.
func (s *Store) MemberState(id string) MemberState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.memberStateLocked(id)
}

func (s *Store) memberStateLocked(id string) MemberState {
	if state, ok := s.members[id]; ok {
		return state
	}
	return MemberUnknown
}

// promoteLocked confirms a pending member and opens its mailbox.
func (s *Store) promoteLocked(id string) {
	if s.members[id] == MemberJoined {
		return
	}
	s.members[id] = MemberJoined
	s.roster = append(s.roster, id)
	s.participants[id] = &fifo{}
	s.observer.RosterSize(len(s.roster))

	s.logger.Info("participant joined",
		zap.String("participant", id),
		zap.Int("roster_size", len(s.roster)),
	)
}
