/*
Package testutil 提供 fedbroker 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor
  - Broker 夹具: NewStore / NewBrokerServer / ConfirmParticipants，
    在 httptest 上挂载真实路由，供 client 与 cmd 测试使用

handlers 包的测试不能使用本包（会形成导入环），它们直接构造 Store。
*/
package testutil
