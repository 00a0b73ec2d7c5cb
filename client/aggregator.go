package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/fedbroker/api"
	"github.com/BaSui01/fedbroker/broker"
	"go.uber.org/zap"
)

// Update is an envelope drained from the aggregator mailbox.
type Update struct {
	Kind     broker.Kind
	Sender   string
	Payload  json.RawMessage
	QueuedAt time.Time
}

// Aggregator drives the active task. Only one Aggregator should consume the
// broker at a time since receives are destructive.
type Aggregator struct {
	c *Client

	// UPDATED envelopes drained while waiting for quorum
	backlog []Update
}

// Aggregator returns the aggregator handle.
func (c *Client) Aggregator() *Aggregator {
	return &Aggregator{c: c}
}

// Participants returns the confirmed roster.
func (a *Aggregator) Participants(ctx context.Context) ([]string, error) {
	var body messageBody[[]string]
	if err := a.c.call(ctx, http.MethodGet, "get_participants", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Message, nil
}

// Send broadcasts payload to every confirmed participant.
func (a *Aggregator) Send(ctx context.Context, payload any) error {
	return a.post(ctx, "aggregator_send", payload)
}

// StopTask broadcasts the final payload tagged STOPPED and completes the task.
func (a *Aggregator) StopTask(ctx context.Context, payload any) error {
	if err := a.post(ctx, "stop_task", payload); err != nil {
		return err
	}
	a.c.logger.Info("task stopped")
	return nil
}

func (a *Aggregator) post(ctx context.Context, path string, payload any) error {
	msg, err := a.c.encode(payload)
	if err != nil {
		return err
	}
	return a.c.call(ctx, http.MethodPost, path, nil, api.MessageRequest{Message: msg}, nil)
}

// Receive returns the oldest envelope in the aggregator mailbox, polling until
// timeout. It fails with *broker.TimedOutError when nothing arrives in time.
func (a *Aggregator) Receive(ctx context.Context, timeout time.Duration) (Update, error) {
	var upd Update
	err := a.c.poll(ctx, timeout, func(ctx context.Context) error {
		var body messageBody[api.EnvelopeView]
		if err := a.c.do(ctx, http.MethodGet, "aggregator_receive", nil, nil, &body); err != nil {
			return err
		}
		upd = Update{
			Kind:     broker.Kind(body.Message.Kind),
			Sender:   body.Message.Sender,
			Payload:  body.Message.Payload,
			QueuedAt: body.Message.QueuedAt,
		}
		return nil
	})
	return upd, err
}

// WaitForQuorum returns once at least quorum participants are confirmed.
// Every receive drains one envelope: JOINED grows the roster, UPDATED is kept
// for the next CollectUpdates. Each receive is bounded by timeout.
func (a *Aggregator) WaitForQuorum(ctx context.Context, quorum int, timeout time.Duration) ([]string, error) {
	roster, err := a.Participants(ctx)
	if err != nil {
		return nil, err
	}

	for len(roster) < quorum {
		upd, err := a.Receive(ctx, timeout)
		if err != nil {
			return roster, fmt.Errorf("waiting for quorum %d/%d: %w", len(roster), quorum, err)
		}
		switch upd.Kind {
		case broker.KindJoined:
			roster = append(roster, upd.Sender)
			a.c.logger.Info("participant joined",
				zap.String("participant", upd.Sender),
				zap.Int("roster_size", len(roster)),
				zap.Int("quorum", quorum),
			)
		case broker.KindUpdated:
			a.backlog = append(a.backlog, upd)
		}
	}
	return roster, nil
}

// CollectUpdates gathers exactly quorum UPDATED envelopes. JOINED envelopes
// drained on the way confirm their sender but do not count.
func (a *Aggregator) CollectUpdates(ctx context.Context, quorum int, timeout time.Duration) ([]Update, error) {
	updates := make([]Update, 0, quorum)
	for len(a.backlog) > 0 && len(updates) < quorum {
		updates = append(updates, a.backlog[0])
		a.backlog = a.backlog[1:]
	}

	for len(updates) < quorum {
		upd, err := a.Receive(ctx, timeout)
		if err != nil {
			return updates, fmt.Errorf("collecting updates %d/%d: %w", len(updates), quorum, err)
		}
		switch upd.Kind {
		case broker.KindUpdated:
			updates = append(updates, upd)
		case broker.KindJoined:
			a.c.logger.Info("participant joined mid-round", zap.String("participant", upd.Sender))
		}
	}
	return updates, nil
}
