// Package config 提供 AdsBridge 的配置加载。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，环境变量以
// ADSBRIDGE_ 为前缀，按结构体 env 标签逐级拼接，例如
// ADSBRIDGE_BROWSER_USE_TASK_LLM_PROVIDER、ADSBRIDGE_ADSPOWER_RATE_LIMIT。
// 各业务包的配置类型（adspower.Config、browseruse.TaskConfig、
// orchestrator.Config、cache.Config）直接嵌入 Config，由各自的 Validate 校验。
package config
