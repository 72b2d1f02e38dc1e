// Package httpclient 集中构造出站 HTTP 客户端，
// 为 AdsPower 与自动化服务调用提供统一的 TLS 加固（TLS 1.2+，仅 AEAD 密码套件）、
// 连接池参数和上游错误映射。
package httpclient
