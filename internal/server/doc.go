// 版权所有 fedbroker Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 fedbroker 的 HTTP 监听器：broker 路由、metrics 端点以及
demo 使用的内嵌 broker。

  - Start 非阻塞绑定地址，端口为 0 时由系统分配，ListenAddr 返回实际地址。
  - Shutdown 在 ShutdownTimeout 内排空请求，重复调用安全；之后 Done 关闭。
  - WaitForShutdown 阻塞到 ctx 结束或服务异常退出。信号由 main 的
    signal.NotifyContext 转换为 ctx 取消。
*/
package server
