package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BaSui01/fedbroker/api"
	"go.uber.org/zap"
)

// User is a broker identity that manages tasks and membership.
type User struct {
	c  *Client
	id string
}

// User returns a handle acting as id.
func (c *Client) User(id string) *User {
	return &User{c: c, id: id}
}

// ID returns the identity of the user.
func (u *User) ID() string { return u.id }

// CreateTask resets the broker, then registers name with definition as the
// active task. Anything queued before is discarded.
func (u *User) CreateTask(ctx context.Context, name string, definition any) error {
	def, err := u.c.encode(definition)
	if err != nil {
		return err
	}
	if err := u.c.Reset(ctx); err != nil {
		return fmt.Errorf("reset before create: %w", err)
	}

	req := api.MessageRequest{TaskName: name, Message: def}
	if err := u.c.call(ctx, http.MethodPost, "create_task", nil, req, nil); err != nil {
		return err
	}
	u.c.logger.Info("task created", zap.String("user", u.id), zap.String("task_name", name))
	return nil
}

// TaskInfo returns the raw definition of the active task. It is JSON null when
// no task exists.
func (u *User) TaskInfo(ctx context.Context) (json.RawMessage, error) {
	var body messageBody[json.RawMessage]
	if err := u.c.call(ctx, http.MethodGet, "task_info", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Message, nil
}

// Tasks lists every task since the last reset.
func (u *User) Tasks(ctx context.Context) ([]api.TaskView, error) {
	var body messageBody[[]api.TaskView]
	if err := u.c.call(ctx, http.MethodGet, "get_tasks", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Message, nil
}

// JoinedTasks lists the tasks available to the user once it is confirmed.
func (u *User) JoinedTasks(ctx context.Context) ([]api.TaskView, error) {
	var body messageBody[[]api.TaskView]
	q := url.Values{"message": {u.id}}
	if err := u.c.call(ctx, http.MethodGet, "get_joined_tasks", q, nil, &body); err != nil {
		return nil, err
	}
	if body.Message == nil {
		body.Message = []api.TaskView{}
	}
	return body.Message, nil
}

// JoinTask asks to join the active task. Membership is confirmed only once
// the aggregator drains the request.
func (u *User) JoinTask(ctx context.Context) error {
	q := url.Values{"message": {u.id}}
	if err := u.c.call(ctx, http.MethodPost, "join_task", q, nil, nil); err != nil {
		return err
	}
	u.c.logger.Debug("join requested", zap.String("user", u.id))
	return nil
}
