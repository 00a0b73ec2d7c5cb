package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fedbroker/api/handlers"
	"github.com/BaSui01/fedbroker/broker"
)

// FastPoll 是测试中 Store 与客户端共用的轮询间隔
const FastPoll = 5 * time.Millisecond

// NewStore 创建一个快速轮询的 Store
func NewStore(opts ...broker.Option) *broker.Store {
	return broker.NewStore(append([]broker.Option{broker.WithPollInterval(FastPoll)}, opts...)...)
}

// NewBrokerServer 在 httptest 上挂载完整的 broker 路由，测试结束时自动关闭
func NewBrokerServer(t *testing.T, store *broker.Store) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handlers.NewBrokerHandler(store, handlers.DefaultMaxBodyBytes, zap.NewNop()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ConfirmParticipants 为每个 ID 发起 join，并以聚合方身份确认
func ConfirmParticipants(t *testing.T, store *broker.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := store.Join(id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		env, err := store.AggregatorReceive(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("confirm %s: %v", id, err)
		}
		if env.Kind != broker.KindJoined || env.Sender != id {
			t.Fatalf("confirm %s: got %s from %s", id, env.Kind, env.Sender)
		}
	}
}
