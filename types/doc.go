// Copyright (c) fedbroker Authors.
// Licensed under the MIT License.

/*
Package types 提供 fedbroker 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 broker、client、api 等
上层模块提供统一的错误契约，避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - 错误构造：NewError + WithCause / WithHTTPStatus / WithRetryable
  - 错误工具链：AsError / GetErrorCode / IsRetryable（支持 %w 包装链）
  - 错误码：请求类（INVALID_REQUEST 等）与协调类（DUPLICATE_JOIN、
    NOT_JOINED、UNKNOWN_PARTICIPANT、MAILBOX_EMPTY 等）
*/
package types
