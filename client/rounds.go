package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/fedbroker/broker"
	"go.uber.org/zap"
)

// AggregateFunc folds the updates of one round into the next global payload.
type AggregateFunc func(ctx context.Context, round int, updates []Update) (any, error)

// TrainFunc computes a participant update from the broadcast payload.
type TrainFunc func(ctx context.Context, round int, payload json.RawMessage) (any, error)

// RoundConfig parameters RunAggregator.
type RoundConfig struct {
	// Quorum is the number of confirmed participants needed before round 0
	// and the number of updates collected per round.
	Quorum int
	// Rounds is the number of broadcast/collect iterations.
	Rounds int
	// Timeout bounds each receive. Zero uses the client receive timeout.
	Timeout time.Duration
	// Initial is the payload broadcast in round 0.
	Initial any
}

// Validate checks the round parameters.
func (c RoundConfig) Validate() error {
	if c.Quorum < 1 {
		return fmt.Errorf("quorum must be positive, got %d", c.Quorum)
	}
	if c.Rounds < 0 {
		return fmt.Errorf("rounds must not be negative, got %d", c.Rounds)
	}
	return nil
}

// RunAggregator waits for quorum, then runs cfg.Rounds rounds of broadcast and
// aggregation and finally stops the task with the last payload, which it
// returns.
func RunAggregator(ctx context.Context, a *Aggregator, cfg RoundConfig, aggregate AggregateFunc) (any, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = a.c.receiveTimeout
	}

	if _, err := a.WaitForQuorum(ctx, cfg.Quorum, timeout); err != nil {
		return nil, err
	}

	model := cfg.Initial
	for round := 0; round < cfg.Rounds; round++ {
		if err := a.Send(ctx, model); err != nil {
			return nil, fmt.Errorf("round %d broadcast: %w", round, err)
		}
		updates, err := a.CollectUpdates(ctx, cfg.Quorum, timeout)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		model, err = aggregate(ctx, round, updates)
		if err != nil {
			return nil, fmt.Errorf("round %d aggregate: %w", round, err)
		}
		a.c.logger.Info("round complete", zap.Int("round", round), zap.Int("updates", len(updates)))
	}

	if err := a.StopTask(ctx, model); err != nil {
		return nil, fmt.Errorf("stop task: %w", err)
	}
	return model, nil
}

// RunParticipant joins the active task and waits for the aggregator to
// confirm it. It then answers every UPDATED broadcast with the result of train
// until the STOPPED payload arrives, which it returns. timeout bounds each
// receive; zero uses the client receive timeout.
func RunParticipant(ctx context.Context, p *Participant, timeout time.Duration, train TrainFunc) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = p.c.receiveTimeout
	}
	if err := p.JoinTask(ctx); err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	defer func() { _ = p.LeaveTask(ctx) }()

	if err := p.WaitConfirmed(ctx, timeout); err != nil {
		return nil, fmt.Errorf("participant %s: %w", p.id, err)
	}

	for round := 0; ; {
		msg, err := p.Receive(ctx, timeout)
		if err != nil {
			return nil, fmt.Errorf("participant %s round %d: %w", p.id, round, err)
		}

		switch msg.Kind {
		case broker.KindStopped:
			p.c.logger.Info("task finished", zap.String("participant", p.id), zap.Int("rounds", round))
			return msg.Payload, nil
		case broker.KindUpdated:
			result, err := train(ctx, round, msg.Payload)
			if err != nil {
				return nil, fmt.Errorf("participant %s train round %d: %w", p.id, round, err)
			}
			if err := p.Send(ctx, result); err != nil {
				return nil, fmt.Errorf("participant %s send round %d: %w", p.id, round, err)
			}
			round++
		default:
			return nil, errors.New("unexpected message kind " + string(msg.Kind))
		}
	}
}
