// Package cdp 通过 Chrome DevTools Protocol 探测浏览器调试 socket，
// 用于确认 AdsPower 返回的地址确实可接入。
package cdp
