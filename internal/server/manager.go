package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Start once the Manager has been shut down.
var ErrClosed = errors.New("server: manager closed")

// Config 描述一个监听器。Name 只用于日志，区分 broker、metrics 与内嵌 broker。
type Config struct {
	Name            string
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultConfig 返回 broker 监听器的默认配置
func DefaultConfig() Config {
	return Config{
		Name:            "broker",
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     2 * time.Minute,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Manager 管理一个 http.Server 的生命周期。一个 Manager 只能启动一次。
type Manager struct {
	srv    *http.Server
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool

	serveErr chan error
	done     chan struct{}
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if cfg.Name == "" {
		cfg.Name = "http"
	}
	return &Manager{
		srv: &http.Server{
			Addr:           cfg.Addr,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "http_server"), zap.String("listener", cfg.Name)),
		serveErr: make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Start 绑定地址并在后台提供服务。端口为 0 时由系统分配，见 ListenAddr。
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.stopped:
		return ErrClosed
	case m.listener != nil:
		return fmt.Errorf("%s listener already bound to %s", m.cfg.Name, m.listener.Addr())
	}

	l, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s on %s: %w", m.cfg.Name, m.cfg.Addr, err)
	}
	m.listener = l
	m.logger.Info("listening", zap.String("addr", l.Addr().String()))

	go func() {
		if err := m.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("serve failed", zap.Error(err))
			m.serveErr <- err
		}
	}()
	return nil
}

// Shutdown 在 ShutdownTimeout 内排空请求。重复调用是 no-op。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}
	m.stopped = true
	defer close(m.done)

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	m.logger.Info("stopped")
	return nil
}

// WaitForShutdown 阻塞到 ctx 结束或服务异常退出，然后优雅关闭。
// 信号处理由调用方通过 signal.NotifyContext 完成。
func (m *Manager) WaitForShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	case err := <-m.serveErr:
		m.logger.Error("server exited unexpectedly", zap.Error(err))
	}

	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}

// Done 在 Shutdown 完成后关闭
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// ListenAddr 返回实际监听地址；未启动或已关闭时返回空串
func (m *Manager) ListenAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil || m.stopped {
		return ""
	}
	return m.listener.Addr().String()
}
