package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BaSui01/fedbroker/api"
	"github.com/BaSui01/fedbroker/broker"
)

// Message is a payload drained from a participant mailbox.
type Message struct {
	Kind    broker.Kind
	Payload json.RawMessage
}

// Participant is a confirmed, or about to be confirmed, member of the task.
type Participant struct {
	*User
}

// Participant returns a handle acting as participant id.
func (c *Client) Participant(id string) *Participant {
	return &Participant{User: c.User(id)}
}

// Send queues payload for the aggregator. It fails with broker.ErrNotJoined
// until the join is confirmed.
func (p *Participant) Send(ctx context.Context, payload any) error {
	msg, err := p.c.encode(payload)
	if err != nil {
		return err
	}
	req := api.MessageRequest{Message: msg, User: p.id}
	return p.c.call(ctx, http.MethodPost, "participant_send", url.Values{"user": {p.id}}, req, nil)
}

// Receive returns the oldest message in the participant mailbox, polling until
// timeout. An unknown participant fails at once with broker.ErrUnknownParticipant.
func (p *Participant) Receive(ctx context.Context, timeout time.Duration) (Message, error) {
	var msg Message
	err := p.c.poll(ctx, timeout, func(ctx context.Context) error {
		var body api.ParticipantMessage
		q := url.Values{"user": {p.id}}
		if err := p.c.do(ctx, http.MethodGet, "participant_receive", q, nil, &body); err != nil {
			return err
		}
		msg = Message{Kind: broker.Kind(body.Kind), Payload: body.Message}
		return nil
	})
	return msg, err
}

// WaitConfirmed polls get_joined_tasks until the aggregator has drained the
// join request, so the participant mailbox exists. It needs an active task.
func (p *Participant) WaitConfirmed(ctx context.Context, timeout time.Duration) error {
	err := p.c.poll(ctx, timeout, func(ctx context.Context) error {
		tasks, err := p.JoinedTasks(ctx)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return errEmpty
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for join confirmation: %w", err)
	}
	return nil
}

// LeaveTask is a no-op: the broker has no leave operation and membership ends
// with the next reset or task.
func (p *Participant) LeaveTask(context.Context) error { return nil }
