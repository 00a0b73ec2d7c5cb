// Copyright (c) fedbroker Authors.
// Licensed under the MIT License.

/*
Package client 提供 fedbroker HTTP 接口的轮询客户端。

# 角色

  - User：创建任务、查询任务、申请加入
  - Aggregator：等待法定人数、广播、收集更新、结束任务
  - Participant：接收广播、回传更新

broker 的接收接口从不阻塞，邮箱为空时返回 404。客户端以
poll_interval 为间隔重试，直到自身的接收超时到期，此时返回
*broker.TimedOutError。

# 轮次驱动

RunAggregator 与 RunParticipant 在角色之上实现完整的训练轮次：
聚合方等待法定人数后逐轮广播并聚合，最后调用 StopTask；
参与者在收到 STOPPED 之前持续训练并回传结果。
*/
package client
