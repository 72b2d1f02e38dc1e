// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package adspower 封装 AdsPower Local API（默认 http://local.adspower.net:50325）。

# 能力

  - Start / StartWithOptions：启动环境并返回调试 socket 地址
  - Stop：停止环境，错误交由调用方处理
  - Active / Status：运行状态与 Local API 健康检查
  - ListProfiles / ListGroups：环境与分组列表，可选 Redis 缓存，
    并发的相同查询经 singleflight 合并为一次请求

# 限流

Local API 对突发请求返回 code 10002。Client 在每次请求前调用
rate.Limiter.Wait 主动排队；这不是重试，被限流的响应仍以错误返回，
可用 errors.Is(err, ErrThrottled) 识别。
*/
package adspower
