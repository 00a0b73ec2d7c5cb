package api

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/fedbroker/broker"
)

// AddedLayout is the timestamp layout of TaskView.Added.
const AddedLayout = "2006-01-02T15:04:05"

// =============================================================================
// 消息载体
// =============================================================================

// MessageRequest is the body accepted by the write endpoints.
// User is read by participant_send and TaskName by create_task.
// @Description 写入类接口的请求体
type MessageRequest struct {
	Message  json.RawMessage `json:"message"`
	User     string          `json:"user,omitempty"`
	TaskName string          `json:"task_name,omitempty"`
}

// MessageResponse is the success body of every broker endpoint.
// @Description 统一成功响应
type MessageResponse struct {
	Message any `json:"message"`
}

// ParticipantMessage is the success body of participant_receive.
// @Description 参与者收到的消息
type ParticipantMessage struct {
	Message json.RawMessage `json:"message"`
	Kind    string          `json:"kind"`
}

// =============================================================================
// 视图
// =============================================================================

// EnvelopeView is the wire form of a broker envelope.
// @Description 聚合方收到的信封
type EnvelopeView struct {
	Kind     string          `json:"kind" example:"JOINED"`
	Sender   string          `json:"sender,omitempty" example:"p1"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

// TaskView is the wire form of a task record.
// @Description 任务记录
type TaskView struct {
	ID       string `json:"id"`
	TaskName string `json:"task_name" example:"mnist"`
	Status   string `json:"status" example:"CREATED"`
	Added    string `json:"added" example:"2026-01-02T15:04:05"`
}

// NewEnvelopeView converts an envelope for the wire.
func NewEnvelopeView(e broker.Envelope) EnvelopeView {
	return EnvelopeView{
		Kind:     string(e.Kind),
		Sender:   e.Sender,
		Payload:  Raw(e.Payload),
		QueuedAt: e.QueuedAt,
	}
}

// NewTaskViews converts task records for the wire. The result is never nil.
func NewTaskViews(tasks []broker.Task) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskView{
			ID:       t.ID,
			TaskName: t.Name,
			Status:   string(t.Status),
			Added:    t.CreatedAt.Format(AddedLayout),
		})
	}
	return out
}

// Raw returns p as a JSON value. Empty payloads become null and bytes that
// are not valid JSON are sent as a JSON string.
func Raw(p []byte) json.RawMessage {
	if len(p) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(p) {
		return json.RawMessage(p)
	}
	quoted, _ := json.Marshal(string(p))
	return quoted
}

// FromText turns a query-string value into payload bytes: valid JSON is kept
// verbatim, anything else is encoded as a JSON string.
func FromText(s string) []byte {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return []byte(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

// Text extracts a string from a raw message, unquoting JSON strings.
func Text(m json.RawMessage) string {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(m)
}
