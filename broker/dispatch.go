package broker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AggregatorSend queues payload as UPDATED in every participant mailbox that
// exists at call time. Participants confirmed later do not receive it.
func (s *Store) AggregatorSend(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(KindUpdated, payload)
}

// StopTask broadcasts the final payload tagged STOPPED and marks the active
// task COMPLETE.
func (s *Store) StopTask(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(KindStopped, payload)
	s.completeLocked()
	s.logger.Info("task stopped", zap.Int("recipients", len(s.roster)))
}

func (s *Store) broadcastLocked(kind Kind, payload []byte) {
	now := s.now()
	for _, id := range s.roster {
		s.participants[id].push(Envelope{
			Kind:     kind,
			Payload:  clonePayload(payload),
			QueuedAt: now,
		})
		s.observer.EnvelopeQueued(RoleParticipant, kind)
	}
	s.observer.QueueDepth(RoleParticipant, s.participantDepthLocked())
	s.notifyLocked()
}

// AggregatorReceive pops the oldest envelope from the aggregator mailbox,
// waiting up to timeout for one to arrive. A JOINED envelope confirms its
// sender before it is returned. A zero timeout checks exactly once.
func (s *Store) AggregatorReceive(ctx context.Context, timeout time.Duration) (Envelope, error) {
	return s.await(ctx, RoleAggregator, timeout, func() (Envelope, bool, error) {
		env, ok := s.aggregator.pop()
		if !ok {
			return Envelope{}, false, nil
		}
		if env.Kind == KindJoined {
			s.promoteLocked(env.Sender)
		}
		s.observer.EnvelopeDelivered(RoleAggregator, env.Kind)
		s.observer.QueueDepth(RoleAggregator, s.aggregator.len())
		return env, true, nil
	})
}

// ParticipantSend queues payload for the aggregator as UPDATED from id.
func (s *Store) ParticipantSend(id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[id] != MemberJoined {
		return fmt.Errorf("%w: %s", ErrNotJoined, id)
	}
	s.pushAggregatorLocked(Envelope{
		Kind:    KindUpdated,
		Sender:  id,
		Payload: clonePayload(payload),
	})
	return nil
}

// ParticipantReceive pops the oldest envelope from the mailbox of id, waiting
// up to timeout. It fails with ErrUnknownParticipant without waiting when id
// has no mailbox.
func (s *Store) ParticipantReceive(ctx context.Context, id string, timeout time.Duration) (Envelope, error) {
	return s.await(ctx, RoleParticipant, timeout, func() (Envelope, bool, error) {
		q, ok := s.participants[id]
		if !ok {
			return Envelope{}, false, fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
		}
		env, ok := q.pop()
		if !ok {
			return Envelope{}, false, nil
		}
		s.observer.EnvelopeDelivered(RoleParticipant, env.Kind)
		s.observer.QueueDepth(RoleParticipant, s.participantDepthLocked())
		return env, true, nil
	})
}

func (s *Store) pushAggregatorLocked(env Envelope) {
	env.QueuedAt = s.now()
	s.aggregator.push(env)
	s.observer.EnvelopeQueued(RoleAggregator, env.Kind)
	s.observer.QueueDepth(RoleAggregator, s.aggregator.len())
	s.notifyLocked()
}
