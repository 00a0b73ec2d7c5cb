// =============================================================================
// fedbroker 主入口
// =============================================================================
// 联邦学习协调 broker：HTTP 服务、健康检查、Prometheus 指标以及客户端命令
//
// 使用方法:
//
//	fedbroker serve                          # 启动服务
//	fedbroker serve --config config.yaml     # 指定配置文件
//	fedbroker serve --env-file .env          # 先加载 dotenv 文件
//	fedbroker create-task --name mnist       # 重置 broker 并创建任务
//	fedbroker tasks                          # 列出任务
//	fedbroker demo --participants 3          # 本地运行完整训练轮次
//	fedbroker version                        # 显示版本信息
//	fedbroker health                         # 健康检查
// =============================================================================

// @title fedbroker API
// @version 1.0.0
// @description In-memory coordination broker for federated learning rounds.
// @description
// @description ## Features
// @description - Task registry with a single active task
// @description - Two-phase join confirmed by the aggregator
// @description - Per-role FIFO mailboxes with snapshot broadcast
// @description - Health monitoring and metrics

// @contact.name fedbroker Team
// @contact.url https://github.com/BaSui01/fedbroker

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/fedbroker/config"
	"github.com/BaSui01/fedbroker/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		runServe(args)
		return
	case "version":
		printVersion()
		return
	case "health":
		runHealthCheck(args)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "create-task":
		err = runCreateTask(args)
	case "tasks":
		err = runTasks(args)
	case "join":
		err = runJoin(args)
	case "joined":
		err = runJoined(args)
	case "participants":
		err = runParticipants(args)
	case "reset":
		err = runReset(args)
	case "demo":
		err = runDemo(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	envFile := fs.String("env-file", "", "Path to a dotenv file loaded before the environment")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fedbroker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	srv := NewServer(cfg, logger, otelProviders)
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown(ctx)

	logger.Info("fedbroker stopped")
}

// loadConfig 按 默认值 → YAML → dotenv/环境变量 的顺序加载并验证配置
func loadConfig(configPath, envFile string) (*config.Config, error) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	if envFile != "" {
		loader = loader.WithDotEnv(envFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	_ = fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("fedbroker %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`fedbroker - federated learning coordination broker

Usage:
  fedbroker <command> [options]

Commands:
  serve         Start the broker server
  health        Check server health
  version       Show version information
  create-task   Reset the broker and create a task
  tasks         List tasks
  join          Ask to join the active task
  joined        List tasks joined by a user
  participants  List confirmed participants
  reset         Clear all broker state
  demo          Run an aggregator and participants against a broker
  help          Show this help message

Options for 'serve':
  --config <path>     Path to configuration file (YAML)
  --env-file <path>   Load a dotenv file before reading the environment

Options for client commands:
  --broker <url>      Broker URL (default from FEDBROKER_CLIENT_BROKER_URL)
  --config <path>     Path to configuration file (YAML)

Examples:
  fedbroker serve --config /etc/fedbroker/config.yaml
  fedbroker create-task --name mnist --definition '{"quorum":2,"rounds":3}'
  fedbroker join --user p1
  fedbroker demo --participants 3 --rounds 5
  fedbroker health --addr http://localhost:8080
  fedbroker version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: true,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}
	if len(zapConfig.OutputPaths) == 0 {
		zapConfig.OutputPaths = []string{"stdout"}
	}

	var opts []zap.Option
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
