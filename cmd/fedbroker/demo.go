package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/fedbroker/api/handlers"
	"github.com/BaSui01/fedbroker/broker"
	"github.com/BaSui01/fedbroker/client"
	"github.com/BaSui01/fedbroker/internal/server"
)

// =============================================================================
// 🧪 demo 命令：一个聚合方加 N 个参与者，对浮点向量做联邦平均
// =============================================================================

// demoConfig 是一次 demo 运行的参数
type demoConfig struct {
	Participants int
	Rounds       int
	Dim          int
	Timeout      time.Duration
}

func runDemo(args []string) error {
	f := newClientFlags("demo")
	participants := f.fs.Int("participants", 3, "Number of participants")
	rounds := f.fs.Int("rounds", 3, "Number of training rounds")
	dim := f.fs.Int("dim", 4, "Model vector length")
	timeout := f.fs.Duration("timeout", 30*time.Second, "Per-receive timeout")
	embedded := f.fs.Bool("embedded", false, "Start an in-process broker instead of using --broker")

	c, logger, err := f.connect(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *embedded {
		mgr, err := startEmbeddedBroker(logger)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Shutdown(context.Background()) }()

		c, err = client.New("http://"+mgr.ListenAddr(), client.WithLogger(logger), client.WithPollInterval(10*time.Millisecond))
		if err != nil {
			return err
		}
	}

	model, err := runFederatedAverage(ctx, c, demoConfig{
		Participants: *participants,
		Rounds:       *rounds,
		Dim:          *dim,
		Timeout:      *timeout,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("final model: %v\n", model)
	return nil
}

// startEmbeddedBroker 在随机端口上启动一个内存 broker
func startEmbeddedBroker(logger *zap.Logger) (*server.Manager, error) {
	store := broker.NewStore(broker.WithLogger(logger), broker.WithPollInterval(10*time.Millisecond))
	mux := http.NewServeMux()
	handlers.NewBrokerHandler(store, handlers.DefaultMaxBodyBytes, logger).Register(mux)

	cfg := server.DefaultConfig()
	cfg.Name = "embedded-broker"
	cfg.Addr = "127.0.0.1:0"
	mgr := server.NewManager(mux, cfg, logger)
	if err := mgr.Start(); err != nil {
		return nil, fmt.Errorf("start embedded broker: %w", err)
	}
	return mgr, nil
}

// runFederatedAverage 创建任务并并发运行聚合方与全部参与者，返回最终模型
func runFederatedAverage(ctx context.Context, c *client.Client, cfg demoConfig, logger *zap.Logger) ([]float64, error) {
	if cfg.Participants < 1 || cfg.Dim < 1 {
		return nil, errors.New("participants and dim must be positive")
	}

	taskName := "demo-" + uuid.NewString()[:8]
	definition := map[string]any{
		"quorum": cfg.Participants,
		"rounds": cfg.Rounds,
		"dim":    cfg.Dim,
	}
	if err := c.User("demo-owner").CreateTask(ctx, taskName, definition); err != nil {
		return nil, err
	}
	logger.Info("demo task created", zap.String("task_name", taskName), zap.Int("participants", cfg.Participants))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Participants; i++ {
		p := c.Participant(fmt.Sprintf("participant-%d", i))
		g.Go(func() error {
			_, err := client.RunParticipant(gctx, p, cfg.Timeout, localStep(float64(i+1)))
			return err
		})
	}

	var final []float64
	g.Go(func() error {
		result, err := client.RunAggregator(gctx, c.Aggregator(), client.RoundConfig{
			Quorum:  cfg.Participants,
			Rounds:  cfg.Rounds,
			Timeout: cfg.Timeout,
			Initial: make([]float64, cfg.Dim),
		}, averageVectors)
		if err != nil {
			return err
		}
		final, _ = result.([]float64)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return final, nil
}

// localStep 模拟一次本地训练：向全局模型每一维加上 target 的一半差值
func localStep(target float64) client.TrainFunc {
	return func(_ context.Context, _ int, payload json.RawMessage) (any, error) {
		var model []float64
		if err := json.Unmarshal(payload, &model); err != nil {
			return nil, fmt.Errorf("decode model: %w", err)
		}
		for i := range model {
			model[i] += (target - model[i]) / 2
		}
		return model, nil
	}
}

// averageVectors 对各参与者的向量逐维求平均
func averageVectors(_ context.Context, _ int, updates []client.Update) (any, error) {
	if len(updates) == 0 {
		return nil, errors.New("no updates to average")
	}

	var sum []float64
	for _, u := range updates {
		var vec []float64
		if err := json.Unmarshal(u.Payload, &vec); err != nil {
			return nil, fmt.Errorf("decode update from %s: %w", u.Sender, err)
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			return nil, fmt.Errorf("update from %s has %d dims, want %d", u.Sender, len(vec), len(sum))
		}
		for i, v := range vec {
			sum[i] += v
		}
	}
	for i := range sum {
		sum[i] /= float64(len(updates))
	}
	return sum, nil
}
