// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 adsbridge serve 的 HTTP 端点生命周期。

# 核心类型

  - Manager：持有一组具名端点（api、metrics），统一启动、
    等待与优雅关闭。
  - Config：单个端点的监听地址、读写超时、空闲超时、
    最大请求头大小与关闭超时。

# 主要能力

  - 全部启动或全部不启动：任一端点监听失败时关闭已打开的监听。
  - Run 阻塞到上下文取消（通常来自 signal.NotifyContext）或端点异常退出。
  - Shutdown 使用 errgroup 并发关闭各端点，每个端点独立计时。
  - Addr 返回实际监听地址，便于以 127.0.0.1:0 启动的测试。
*/
package server
