package metrics

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/fedbroker/broker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.envelopesQueued)
	assert.NotNil(t, collector.queueDepth)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/task_info", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("GET", "/task_info", 200, 50*time.Millisecond, 512, 1024)
	collector.RecordHTTPRequest("GET", "/aggregator_receive", 404, time.Millisecond, 0, 80)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/task_info", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/aggregator_receive", "4xx")))
}

func TestCollector_ObservesBroker(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())
	store := broker.NewStore(broker.WithObserver(collector))
	ctx := context.Background()

	require.NoError(t, store.Join("p1"))
	require.NoError(t, store.Join("p2"))
	require.Error(t, store.Join("p1"))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queueDepth.WithLabelValues("aggregator")))

	for i := 0; i < 2; i++ {
		_, err := store.AggregatorReceive(ctx, 0)
		require.NoError(t, err)
	}
	store.AggregatorSend([]byte(`1`))
	_, err := store.AggregatorReceive(ctx, 0)
	require.Error(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.receiveTimeouts.WithLabelValues("aggregator")))
	_, err = store.AggregatorReceive(ctx, 10*time.Millisecond)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.envelopesQueued.WithLabelValues("aggregator", "JOINED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.envelopesDelivered.WithLabelValues("aggregator", "JOINED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.envelopesQueued.WithLabelValues("participant", "UPDATED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.receiveTimeouts.WithLabelValues("aggregator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.joinsRejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.rosterSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queueDepth.WithLabelValues("participant")))

	store.Reset()
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.resets))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.rosterSize))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.queueDepth.WithLabelValues("participant")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(304))
	assert.Equal(t, "4xx", statusCode(410))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(100))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordHTTPRequest("GET", "/get_participants", 200, 100*time.Millisecond, 0, 64)
			collector.EnvelopeQueued(broker.RoleAggregator, broker.KindUpdated)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/get_participants", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.envelopesQueued.WithLabelValues("aggregator", "UPDATED")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	registry.MustRegister(collector.envelopesQueued)
	collector.EnvelopeQueued(broker.RoleParticipant, broker.KindStopped)

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
