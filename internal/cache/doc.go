// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的 JSON 缓存，用于缓存 AdsPower 环境与分组列表，
减少对限流严格的 Local API 的重复请求。

# 核心类型

  - Manager：持有 go-redis 客户端，按 KeyPrefix 隔离键空间，
    提供 Get/Set/GetJSON/SetJSON/Delete/DeletePrefix/Ping/Close。
  - Config：地址、密码、库号、默认 TTL、连接池与健康检查间隔。
  - HitRecorder：命中/未命中回调，internal/metrics.Collector 实现该接口。

# 错误语义

未命中返回 ErrCacheMiss，调用方以 IsCacheMiss 判断。
Manager 关闭后所有操作返回 ErrClosed。
*/
package cache
