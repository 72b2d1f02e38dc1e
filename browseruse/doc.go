// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package browseruse 是 Browser Use WebUI 自动化服务的客户端。

# 概述

WebUI 通过命名端点暴露远程调用接口（默认地址 http://127.0.0.1:7788）。
本包把每个端点建模为枚举类型 Operation，把原先的大型默认参数表建模为
带文档默认值的 TaskConfig / DeepSearchConfig 结构，并通过 TaskOverrides /
DeepSearchOverrides 按字段合并调用方的覆盖值。

# 核心类型

  - Operation：固定端点枚举（run_with_stream、stop_agent 等）
  - TaskConfig：自动化任务参数及默认值
  - DeepSearchConfig：深度搜索参数及默认值
  - Transport：传输层接口（Call(ctx, op, params)）
  - RESTTransport：POST {base}/api/{name}，JSON 对象请求体
  - GradioTransport：Gradio 两段式调用 + SSE 事件流
  - Client：RunTask / Stop / CloseBrowser / RunDeepSearch /
    StopResearch / ListRecordings / ListModels

# 约定

返回值为服务端原样负载（json.RawMessage），不做形状校验；
传输层错误原样向上传播。
*/
package browseruse
