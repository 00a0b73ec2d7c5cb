// Copyright (c) fedbroker Authors.
// Licensed under the MIT License.

/*
Package main 提供 fedbroker 服务端与客户端命令入口。

# 概述

cmd/fedbroker 是联邦学习协调 broker 的可执行入口：serve 启动 HTTP 服务，
其余子命令通过 client 包访问一个正在运行的 broker。程序支持 YAML 配置、
dotenv 文件、结构化日志（zap）、Prometheus 指标与 OpenTelemetry 遥测。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware       — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve、health、version、create-task、tasks、join、joined、
    participants、reset、demo
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、CORS、RateLimiter（基于 IP）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus），端口为 0 时不启动
  - demo：errgroup 并发运行聚合方与参与者，对浮点向量做联邦平均
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
