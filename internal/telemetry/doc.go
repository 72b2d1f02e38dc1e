// Package telemetry 负责 OpenTelemetry SDK 的初始化与关闭。
// 业务包只依赖全局 otel.Tracer / otel.Meter；本包在 serve 启动时
// 安装 OTLP/gRPC 导出器，禁用时保持 noop。
package telemetry
