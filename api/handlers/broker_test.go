package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/fedbroker/api"
	"github.com/BaSui01/fedbroker/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBrokerMux(t *testing.T, maxBody int64) (*http.ServeMux, *broker.Store) {
	t.Helper()
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	store := broker.NewStore(broker.WithClock(func() time.Time { return fixed }))
	mux := http.NewServeMux()
	NewBrokerHandler(store, maxBody, zap.NewNop()).Register(mux)
	return mux, store
}

func do(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestBrokerHandler_TaskLifecycle(t *testing.T) {
	mux, _ := newBrokerMux(t, 0)

	w := do(t, mux, http.MethodGet, "/task_info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":null}`, w.Body.String())

	w = do(t, mux, http.MethodPost, "/create_task?task_name=mnist&message="+url.QueryEscape(`{"rounds":2}`), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, mux, http.MethodGet, "/task_info", "")
	assert.JSONEq(t, `{"message":{"rounds":2}}`, w.Body.String())

	w = do(t, mux, http.MethodPost, "/create_task", `{"task_name":"mnist","message":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_TASK", errorCode(t, w))

	w = do(t, mux, http.MethodPost, "/create_task", `{"message":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, mux, http.MethodGet, "/get_tasks", "")
	var tasks struct {
		Message []api.TaskView `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tasks))
	require.Len(t, tasks.Message, 1)
	assert.Equal(t, "mnist", tasks.Message[0].TaskName)
	assert.Equal(t, "CREATED", tasks.Message[0].Status)
	assert.Equal(t, "2026-03-04T05:06:07", tasks.Message[0].Added)

	w = do(t, mux, http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, mux, http.MethodGet, "/get_tasks", "")
	assert.JSONEq(t, `{"message":[]}`, w.Body.String())
}

func TestBrokerHandler_CreateTaskPlainTextDefinition(t *testing.T) {
	mux, store := newBrokerMux(t, 0)

	w := do(t, mux, http.MethodPost, "/create_task?task_name=t&message=hello", "")
	require.Equal(t, http.StatusOK, w.Code)

	def, ok := store.TaskInfo()
	require.True(t, ok)
	assert.Equal(t, `"hello"`, string(def))
}

func TestBrokerHandler_JoinAndReceive(t *testing.T) {
	mux, _ := newBrokerMux(t, 0)

	w := do(t, mux, http.MethodGet, "/aggregator_receive", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MAILBOX_EMPTY", errorCode(t, w))

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/join_task?message=p1", "").Code)
	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/join_task", `{"message":"p2"}`).Code)

	w = do(t, mux, http.MethodPost, "/join_task?message=p1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_JOIN", errorCode(t, w))

	w = do(t, mux, http.MethodPost, "/join_task", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, want := range []string{"p1", "p2"} {
		w = do(t, mux, http.MethodGet, "/aggregator_receive", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Message api.EnvelopeView `json:"message"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "JOINED", resp.Message.Kind)
		assert.Equal(t, want, resp.Message.Sender)
	}

	w = do(t, mux, http.MethodGet, "/get_participants", "")
	assert.JSONEq(t, `{"message":["p1","p2"]}`, w.Body.String())
}

func TestBrokerHandler_Broadcast(t *testing.T) {
	mux, store := newBrokerMux(t, 0)
	require.NoError(t, store.Join("p1"))
	_, err := store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)

	w := do(t, mux, http.MethodPost, "/aggregator_send", `{"message":{"round":0}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, mux, http.MethodGet, "/participant_receive?user=p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":{"round":0},"kind":"UPDATED"}`, w.Body.String())

	w = do(t, mux, http.MethodGet, "/participant_receive?user=p1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, mux, http.MethodGet, "/participant_receive?user=ghost", "")
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "UNKNOWN_PARTICIPANT", errorCode(t, w))

	w = do(t, mux, http.MethodPost, "/aggregator_send", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrokerHandler_ParticipantSend(t *testing.T) {
	mux, store := newBrokerMux(t, 0)

	w := do(t, mux, http.MethodPost, "/participant_send?user=p1", `{"message":1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_JOINED", errorCode(t, w))

	require.NoError(t, store.Join("p1"))
	_, err := store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/participant_send?user=p1", `{"message":{"w":[1,2]}}`).Code)
	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/participant_send", `{"message":3,"user":"p1"}`).Code)

	env, err := store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, broker.KindUpdated, env.Kind)
	assert.JSONEq(t, `{"w":[1,2]}`, string(env.Payload))

	env, err = store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, "3", string(env.Payload))
}

func TestBrokerHandler_StopTask(t *testing.T) {
	mux, store := newBrokerMux(t, 0)
	_, err := store.CreateTask("t", nil)
	require.NoError(t, err)
	require.NoError(t, store.Join("p1"))
	_, err = store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/stop_task", `{"message":[0.5]}`).Code)

	w := do(t, mux, http.MethodGet, "/participant_receive?user=p1", "")
	assert.JSONEq(t, `{"message":[0.5],"kind":"STOPPED"}`, w.Body.String())
	assert.Equal(t, broker.TaskComplete, store.ListTasks()[0].Status)
}

func TestBrokerHandler_JoinedTasks(t *testing.T) {
	mux, store := newBrokerMux(t, 0)
	_, err := store.CreateTask("t", nil)
	require.NoError(t, err)

	w := do(t, mux, http.MethodGet, "/get_joined_tasks?message=p1", "")
	assert.JSONEq(t, `{"message":[]}`, w.Body.String())

	require.NoError(t, store.Join("p1"))
	_, err = store.AggregatorReceive(t.Context(), 0)
	require.NoError(t, err)

	w = do(t, mux, http.MethodGet, "/get_joined_tasks?message=p1", "")
	var resp struct {
		Message []api.TaskView `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Message, 1)
	assert.Equal(t, "t", resp.Message[0].TaskName)
}

func TestBrokerHandler_MethodAndSize(t *testing.T) {
	mux, _ := newBrokerMux(t, 64)

	w := do(t, mux, http.MethodPost, "/task_info", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(t, mux, http.MethodGet, "/aggregator_send", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	big := `{"message":"` + strings.Repeat("x", 128) + `"}`
	w = do(t, mux, http.MethodPost, "/aggregator_send", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBrokerHandler_Stats(t *testing.T) {
	mux, store := newBrokerMux(t, 0)
	require.NoError(t, store.Join("p1"))

	w := do(t, mux, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool         `json:"success"`
		Data    broker.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.PendingJoins)
	assert.Equal(t, 1, resp.Data.AggregatorQueue)
}
