// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 adsbridge 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual（语义比较）、AssertEventuallyTrue

# 子包

  - testutil/mocks: 基于 httptest 的远程服务替身，包括
    AdsPowerServer（AdsPower Local API）与 AutomationServer
    （自动化服务 REST 接口），记录收到的调用供断言使用
*/
package testutil
