package adspower

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// envelope is the common Local API response shape.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// WSEndpoints 浏览器调试地址。
// Local API 的 data.ws 在旧版本中是字符串，新版本是 {puppeteer, selenium} 对象，两种都接受。
type WSEndpoints struct {
	Puppeteer string `json:"puppeteer,omitempty"`
	Selenium  string `json:"selenium,omitempty"`
}

// UnmarshalJSON accepts either a bare string or an object.
func (w *WSEndpoints) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = WSEndpoints{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = WSEndpoints{Puppeteer: s}
		return nil
	}
	type plain WSEndpoints
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("ws: expected string or object: %w", err)
	}
	*w = WSEndpoints(p)
	return nil
}

// Empty reports whether no endpoint was returned.
func (w WSEndpoints) Empty() bool {
	return w.Puppeteer == "" && w.Selenium == ""
}

// flexString decodes a JSON string or number into a string; AdsPower
// returns debug_port as either depending on version.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type browserData struct {
	Status    string      `json:"status"`
	WS        WSEndpoints `json:"ws"`
	DebugPort flexString  `json:"debug_port"`
	WebDriver string      `json:"webdriver"`
}

// StartResult 环境启动结果
type StartResult struct {
	ProfileID string `json:"profile_id"`
	// 启动成功时恒为 "Active"
	Status string `json:"status"`
	// 供自动化会话接入的调试 socket 地址（puppeteer 优先，其次 selenium）
	SocketAddress string      `json:"socket_address"`
	WS            WSEndpoints `json:"ws"`
	DebugPort     string      `json:"debug_port,omitempty"`
	WebDriver     string      `json:"webdriver,omitempty"`
}

// Port returns the DevTools port, from debug_port or parsed from the
// socket address.
func (r *StartResult) Port() int {
	if p, err := strconv.Atoi(r.DebugPort); err == nil && p > 0 {
		return p
	}
	return portFromAddress(r.SocketAddress)
}

// ActiveStatus 环境运行状态
type ActiveStatus struct {
	ProfileID string      `json:"profile_id"`
	Status    string      `json:"status"`
	WS        WSEndpoints `json:"ws"`
}

// Active reports whether the profile's browser is running.
func (s *ActiveStatus) Active() bool {
	return s.Status == StatusActive
}

// Profile status values reported by /browser/active.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Profile 环境摘要
type Profile struct {
	UserID       string `json:"user_id"`
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	DomainName   string `json:"domain_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Remark       string `json:"remark,omitempty"`
	IP           string `json:"ip,omitempty"`
	IPCountry    string `json:"ip_country,omitempty"`
	CreatedTime  string `json:"created_time,omitempty"`
	LastOpenTime string `json:"last_open_time,omitempty"`
}

// Group 环境分组
type Group struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	Remark    string `json:"remark,omitempty"`
}

// ProfileQuery 环境列表查询参数
type ProfileQuery struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	GroupID  string `json:"group_id,omitempty"`
}

// ProfilePage 环境列表分页结果
type ProfilePage struct {
	List     []Profile `json:"list"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type groupPage struct {
	List []Group `json:"list"`
}

// StartOptions 单次启动的覆盖参数，nil 字段使用 Config 中的值
type StartOptions struct {
	LaunchArgs             []string `json:"launch_args,omitempty"`
	Headless               *bool    `json:"headless,omitempty"`
	OpenTabs               *bool    `json:"open_tabs,omitempty"`
	ClearCacheAfterClosing *bool    `json:"clear_cache_after_closing,omitempty"`
	CDPMask                *bool    `json:"cdp_mask,omitempty"`
}
