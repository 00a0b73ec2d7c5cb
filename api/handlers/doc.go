// Copyright (c) fedbroker Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 fedbroker HTTP API 的请求处理器实现。

# 概述

handlers 包把 broker.Store 的任务、成员与邮箱操作暴露为 HTTP 端点，
并提供健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - BrokerHandler    — 任务、成员、邮箱端点；接收类端点只检查一次，不阻塞
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一错误响应结构（success + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（可配置大小上限 + 严格模式）、ValidateContentType、RequireMethod
  - ErrorCode → HTTP 状态码自动映射（409 重复、403 未加入、410 未知参与者、404 邮箱为空）
*/
package handlers
