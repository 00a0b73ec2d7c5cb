package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BaSui01/fedbroker/api"
	"github.com/BaSui01/fedbroker/broker"
	"github.com/BaSui01/fedbroker/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📮 Broker Handler
// =============================================================================

// Broker is the coordination state the handler serves.
type Broker interface {
	Reset()
	CreateTask(name string, definition []byte) (broker.Task, error)
	TaskInfo() ([]byte, bool)
	ListTasks() []broker.Task
	Join(id string) error
	Participants() []string
	JoinedTasks(id string) []broker.Task
	AggregatorSend(payload []byte)
	AggregatorReceive(ctx context.Context, timeout time.Duration) (broker.Envelope, error)
	ParticipantSend(id string, payload []byte) error
	ParticipantReceive(ctx context.Context, id string, timeout time.Duration) (broker.Envelope, error)
	StopTask(payload []byte)
	Stats() broker.Stats
}

// BrokerHandler serves the broker endpoints. Receives never block: they check
// the mailbox once and answer 404 when it is empty.
type BrokerHandler struct {
	broker       Broker
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewBrokerHandler 创建 broker 处理器
func NewBrokerHandler(b Broker, maxBodyBytes int64, logger *zap.Logger) *BrokerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrokerHandler{
		broker:       b,
		logger:       logger.With(zap.String("component", "broker_handler")),
		maxBodyBytes: maxBodyBytes,
	}
}

// Register 注册全部 broker 路由
func (h *BrokerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/reset", h.HandleReset)
	mux.HandleFunc("/create_task", h.HandleCreateTask)
	mux.HandleFunc("/task_info", h.HandleTaskInfo)
	mux.HandleFunc("/get_tasks", h.HandleGetTasks)
	mux.HandleFunc("/get_joined_tasks", h.HandleGetJoinedTasks)
	mux.HandleFunc("/join_task", h.HandleJoinTask)
	mux.HandleFunc("/get_participants", h.HandleGetParticipants)
	mux.HandleFunc("/aggregator_send", h.HandleAggregatorSend)
	mux.HandleFunc("/aggregator_receive", h.HandleAggregatorReceive)
	mux.HandleFunc("/participant_send", h.HandleParticipantSend)
	mux.HandleFunc("/participant_receive", h.HandleParticipantReceive)
	mux.HandleFunc("/stop_task", h.HandleStopTask)
	mux.HandleFunc("/stats", h.HandleStats)
}

func (h *BrokerHandler) ok(w http.ResponseWriter, message any) {
	WriteJSON(w, http.StatusOK, api.MessageResponse{Message: message})
}

// HandleReset 处理 /reset
// @Summary 重置 broker
// @Tags broker
// @Success 200 {object} api.MessageResponse
// @Router /reset [get]
func (h *BrokerHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet, http.MethodPost) {
		return
	}
	h.broker.Reset()
	h.ok(w, nil)
}

// HandleCreateTask 处理 /create_task
// @Summary 创建任务
// @Tags broker
// @Param task_name query string false "任务名"
// @Param message query string false "任务定义"
// @Success 200 {object} api.MessageResponse
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /create_task [post]
func (h *BrokerHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var name string
	var definition []byte
	if q := r.URL.Query(); q.Has("task_name") {
		name = q.Get("task_name")
		definition = api.FromText(q.Get("message"))
	} else {
		var req api.MessageRequest
		if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
			return
		}
		name = req.TaskName
		definition = req.Message
	}

	if _, err := h.broker.CreateTask(name, definition); err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	h.ok(w, nil)
}

// HandleTaskInfo 处理 /task_info
// @Summary 当前任务定义
// @Tags broker
// @Success 200 {object} api.MessageResponse
// @Router /task_info [get]
func (h *BrokerHandler) HandleTaskInfo(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	def, ok := h.broker.TaskInfo()
	if !ok {
		h.ok(w, nil)
		return
	}
	h.ok(w, api.Raw(def))
}

// HandleGetTasks 处理 /get_tasks
// @Summary 任务列表
// @Tags broker
// @Success 200 {object} api.MessageResponse
// @Router /get_tasks [get]
func (h *BrokerHandler) HandleGetTasks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	h.ok(w, api.NewTaskViews(h.broker.ListTasks()))
}

// HandleGetJoinedTasks 处理 /get_joined_tasks
// @Summary 参与者已加入的任务
// @Tags broker
// @Param message query string true "参与者 ID"
// @Success 200 {object} api.MessageResponse
// @Router /get_joined_tasks [get]
func (h *BrokerHandler) HandleGetJoinedTasks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	h.ok(w, api.NewTaskViews(h.broker.JoinedTasks(r.URL.Query().Get("message"))))
}

// HandleJoinTask 处理 /join_task
// @Summary 申请加入当前任务
// @Tags broker
// @Param message query string true "参与者 ID"
// @Success 200 {object} api.MessageResponse
// @Failure 409 {object} Response
// @Router /join_task [post]
func (h *BrokerHandler) HandleJoinTask(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	id := r.URL.Query().Get("message")
	if id == "" && r.ContentLength != 0 {
		var req api.MessageRequest
		if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
			return
		}
		id = api.Text(req.Message)
	}

	if err := h.broker.Join(id); err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	h.ok(w, nil)
}

// HandleGetParticipants 处理 /get_participants
// @Summary 已确认的参与者
// @Tags broker
// @Success 200 {object} api.MessageResponse
// @Router /get_participants [get]
func (h *BrokerHandler) HandleGetParticipants(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	h.ok(w, h.broker.Participants())
}

// HandleAggregatorSend 处理 /aggregator_send
// @Summary 向全部参与者广播
// @Tags broker
// @Accept json
// @Success 200 {object} api.MessageResponse
// @Failure 400 {object} Response
// @Router /aggregator_send [post]
func (h *BrokerHandler) HandleAggregatorSend(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	var req api.MessageRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
		return
	}
	h.broker.AggregatorSend(req.Message)
	h.ok(w, nil)
}

// HandleStopTask 处理 /stop_task
// @Summary 广播最终结果并结束任务
// @Tags broker
// @Accept json
// @Success 200 {object} api.MessageResponse
// @Failure 400 {object} Response
// @Router /stop_task [post]
func (h *BrokerHandler) HandleStopTask(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	var req api.MessageRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
		return
	}
	h.broker.StopTask(req.Message)
	h.ok(w, nil)
}

// HandleAggregatorReceive 处理 /aggregator_receive
// @Summary 取出聚合方邮箱中最早的信封
// @Tags broker
// @Success 200 {object} api.MessageResponse
// @Failure 404 {object} Response "邮箱为空"
// @Router /aggregator_receive [get]
func (h *BrokerHandler) HandleAggregatorReceive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	env, err := h.broker.AggregatorReceive(r.Context(), 0)
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	h.ok(w, api.NewEnvelopeView(env))
}

// HandleParticipantSend 处理 /participant_send
// @Summary 参与者向聚合方发送更新
// @Tags broker
// @Accept json
// @Param user query string false "参与者 ID"
// @Success 200 {object} api.MessageResponse
// @Failure 403 {object} Response "尚未加入"
// @Router /participant_send [post]
func (h *BrokerHandler) HandleParticipantSend(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodPost) {
		return
	}
	var req api.MessageRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBodyBytes, h.logger); err != nil {
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		user = req.User
	}
	if err := h.broker.ParticipantSend(user, req.Message); err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	h.ok(w, nil)
}

// HandleParticipantReceive 处理 /participant_receive
// @Summary 取出参与者邮箱中最早的消息
// @Tags broker
// @Param user query string true "参与者 ID"
// @Success 200 {object} api.ParticipantMessage
// @Failure 404 {object} Response "邮箱为空"
// @Failure 410 {object} Response "未知参与者"
// @Router /participant_receive [get]
func (h *BrokerHandler) HandleParticipantReceive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	env, err := h.broker.ParticipantReceive(r.Context(), r.URL.Query().Get("user"), 0)
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, api.ParticipantMessage{
		Message: api.Raw(env.Payload),
		Kind:    string(env.Kind),
	})
}

// HandleStats 处理 /stats
// @Summary broker 状态摘要
// @Tags broker
// @Success 200 {object} Response
// @Router /stats [get]
func (h *BrokerHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	WriteSuccess(w, h.broker.Stats())
}

// =============================================================================
// 🔄 broker 错误到 API 错误映射
// =============================================================================

func toAPIError(err error) *types.Error {
	var code types.ErrorCode
	switch {
	case broker.IsTimeout(err):
		return types.NewError(types.ErrMailboxEmpty, "nothing queued").WithRetryable(true)
	case errors.Is(err, broker.ErrDuplicateJoin):
		code = types.ErrDuplicateJoin
	case errors.Is(err, broker.ErrDuplicateTask):
		code = types.ErrDuplicateTask
	case errors.Is(err, broker.ErrNotJoined):
		code = types.ErrNotJoined
	case errors.Is(err, broker.ErrUnknownParticipant):
		code = types.ErrUnknownParticipant
	case errors.Is(err, broker.ErrInvalidTask), errors.Is(err, broker.ErrInvalidParticipant):
		code = types.ErrInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.ErrUnavailable, "request cancelled").WithCause(err).WithRetryable(true)
	default:
		return types.NewError(types.ErrInternalError, "internal error").WithCause(err)
	}
	return types.NewError(code, err.Error())
}
