// Copyright (c) fedbroker Authors.
// Licensed under the MIT License.

/*
Package broker 实现聚合方（aggregator）与参与方（participant）之间的
控制面协调状态机。

# 概述

Store 是单一的共享可变状态对象，由 sync.Mutex 保护，按句柄传递给
传输层。它同时承担三类职责：

  - 任务注册（Task Registry）：最多一个活跃任务及其不透明定义
  - 成员管理（Membership Manager）：两阶段加入（PENDING_JOIN → JOINED）
  - 邮箱与通知分发：聚合方邮箱 + 每个已确认参与方一个 FIFO 邮箱

# 投递语义

  - 单邮箱内严格 FIFO；不同邮箱之间无顺序关系
  - 至多一次、破坏性读取：弹出即删除，无确认协议
  - 广播是快照语义：只投递给广播时刻已确认的参与方
  - 阻塞接收从不持锁等待：加锁检查 → 释放 → 有界等待 → 重新检查，
    入队时通过唤醒通道提前唤醒等待者

# 错误

DuplicateJoin / NotJoined / UnknownParticipant / DuplicateTask 为哨兵错误，
TimedOutError 携带实际耗时与请求时长，errors.Is(err, ErrTimedOut) 成立。
*/
package broker
