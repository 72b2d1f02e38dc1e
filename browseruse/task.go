package browseruse

import (
	"fmt"
	"strings"
)

// ProviderDeepSeek is the provider name that has no vision support.
const ProviderDeepSeek = "deepseek"

// =============================================================================
// 🎯 自动化任务参数
// =============================================================================

// TaskConfig 是 run_with_stream 端点的完整参数集。
// 零值没有意义，请从 DefaultTaskConfig 开始。
type TaskConfig struct {
	// Agent 类型: custom, org
	AgentType string `yaml:"agent_type" env:"AGENT_TYPE"`
	// LLM 提供商，如 openai、deepseek
	LLMProvider string `yaml:"llm_provider" env:"LLM_PROVIDER"`
	// 模型名称
	LLMModelName string `yaml:"llm_model_name" env:"LLM_MODEL_NAME"`
	// 上下文窗口（仅 ollama 类提供商生效）
	LLMNumCtx int `yaml:"llm_num_ctx" env:"LLM_NUM_CTX"`
	// 温度参数
	LLMTemperature float64 `yaml:"llm_temperature" env:"LLM_TEMPERATURE"`
	// 自定义 LLM 端点（空 = 服务端配置）
	LLMBaseURL string `yaml:"llm_base_url" env:"LLM_BASE_URL"`
	// LLM API Key（空 = 服务端配置）
	LLMAPIKey string `yaml:"llm_api_key" env:"LLM_API_KEY"`
	// 使用已有浏览器
	UseOwnBrowser bool `yaml:"use_own_browser" env:"USE_OWN_BROWSER"`
	// 任务结束后保持浏览器
	KeepBrowserOpen bool `yaml:"keep_browser_open" env:"KEEP_BROWSER_OPEN"`
	// 无头模式
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// 关闭浏览器安全策略
	DisableSecurity bool `yaml:"disable_security" env:"DISABLE_SECURITY"`
	// 窗口宽度
	WindowWidth int `yaml:"window_w" env:"WINDOW_W"`
	// 窗口高度
	WindowHeight int `yaml:"window_h" env:"WINDOW_H"`
	// 录屏保存路径
	SaveRecordingPath string `yaml:"save_recording_path" env:"SAVE_RECORDING_PATH"`
	// Agent 历史保存路径
	SaveAgentHistoryPath string `yaml:"save_agent_history_path" env:"SAVE_AGENT_HISTORY_PATH"`
	// Trace 保存路径
	SaveTracePath string `yaml:"save_trace_path" env:"SAVE_TRACE_PATH"`
	// 是否录屏
	EnableRecording bool `yaml:"enable_recording" env:"ENABLE_RECORDING"`
	// 附加信息（追加到任务提示中）
	AddInfos string `yaml:"add_infos" env:"ADD_INFOS"`
	// 最大步骤数
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// 是否启用视觉
	UseVision bool `yaml:"use_vision" env:"USE_VISION"`
	// 每步最大动作数
	MaxActionsPerStep int `yaml:"max_actions_per_step" env:"MAX_ACTIONS_PER_STEP"`
	// 工具调用方式: auto, function_calling, json_mode, raw
	ToolCallingMethod string `yaml:"tool_calling_method" env:"TOOL_CALLING_METHOD"`
	// 已启动浏览器的调试端口，0 表示不发送
	BrowserPort int `yaml:"browser_port" env:"BROWSER_PORT"`
}

// DefaultTaskConfig 返回默认任务参数
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		AgentType:            "custom",
		LLMProvider:          "openai",
		LLMModelName:         "gpt-4o",
		LLMNumCtx:            32000,
		LLMTemperature:       1,
		UseOwnBrowser:        true,
		KeepBrowserOpen:      false,
		Headless:             false,
		DisableSecurity:      true,
		WindowWidth:          1280,
		WindowHeight:         1100,
		SaveRecordingPath:    "./tmp/record_videos",
		SaveAgentHistoryPath: "./tmp/agent_history",
		SaveTracePath:        "./tmp/traces",
		EnableRecording:      true,
		MaxSteps:             100,
		UseVision:            true,
		MaxActionsPerStep:    10,
		ToolCallingMethod:    "auto",
	}
}

// TaskOverrides 调用方覆盖值，nil 字段保留默认值
type TaskOverrides struct {
	AgentType            *string  `json:"agent_type,omitempty"`
	LLMProvider          *string  `json:"llm_provider,omitempty"`
	LLMModelName         *string  `json:"llm_model_name,omitempty"`
	LLMNumCtx            *int     `json:"llm_num_ctx,omitempty"`
	LLMTemperature       *float64 `json:"llm_temperature,omitempty"`
	LLMBaseURL           *string  `json:"llm_base_url,omitempty"`
	LLMAPIKey            *string  `json:"llm_api_key,omitempty"`
	UseOwnBrowser        *bool    `json:"use_own_browser,omitempty"`
	KeepBrowserOpen      *bool    `json:"keep_browser_open,omitempty"`
	Headless             *bool    `json:"headless,omitempty"`
	DisableSecurity      *bool    `json:"disable_security,omitempty"`
	WindowWidth          *int     `json:"window_w,omitempty"`
	WindowHeight         *int     `json:"window_h,omitempty"`
	SaveRecordingPath    *string  `json:"save_recording_path,omitempty"`
	SaveAgentHistoryPath *string  `json:"save_agent_history_path,omitempty"`
	SaveTracePath        *string  `json:"save_trace_path,omitempty"`
	EnableRecording      *bool    `json:"enable_recording,omitempty"`
	AddInfos             *string  `json:"add_infos,omitempty"`
	MaxSteps             *int     `json:"max_steps,omitempty"`
	UseVision            *bool    `json:"use_vision,omitempty"`
	MaxActionsPerStep    *int     `json:"max_actions_per_step,omitempty"`
	ToolCallingMethod    *string  `json:"tool_calling_method,omitempty"`
	BrowserPort          *int     `json:"browser_port,omitempty"`
}

// Clone returns a shallow copy; nil stays nil.
func (o *TaskOverrides) Clone() *TaskOverrides {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// Merge 按字段合并覆盖值，返回新配置，不修改接收者。
// DeepSeek 不支持视觉输入：合并后提供商为 deepseek 且调用方未显式
// 设置 UseVision 时，视觉被关闭。
func (c TaskConfig) Merge(o *TaskOverrides) TaskConfig {
	visionSet := false
	if o != nil {
		override(&c.AgentType, o.AgentType)
		override(&c.LLMProvider, o.LLMProvider)
		override(&c.LLMModelName, o.LLMModelName)
		override(&c.LLMNumCtx, o.LLMNumCtx)
		override(&c.LLMTemperature, o.LLMTemperature)
		override(&c.LLMBaseURL, o.LLMBaseURL)
		override(&c.LLMAPIKey, o.LLMAPIKey)
		override(&c.UseOwnBrowser, o.UseOwnBrowser)
		override(&c.KeepBrowserOpen, o.KeepBrowserOpen)
		override(&c.Headless, o.Headless)
		override(&c.DisableSecurity, o.DisableSecurity)
		override(&c.WindowWidth, o.WindowWidth)
		override(&c.WindowHeight, o.WindowHeight)
		override(&c.SaveRecordingPath, o.SaveRecordingPath)
		override(&c.SaveAgentHistoryPath, o.SaveAgentHistoryPath)
		override(&c.SaveTracePath, o.SaveTracePath)
		override(&c.EnableRecording, o.EnableRecording)
		override(&c.AddInfos, o.AddInfos)
		override(&c.MaxSteps, o.MaxSteps)
		override(&c.UseVision, o.UseVision)
		override(&c.MaxActionsPerStep, o.MaxActionsPerStep)
		override(&c.ToolCallingMethod, o.ToolCallingMethod)
		override(&c.BrowserPort, o.BrowserPort)
		visionSet = o.UseVision != nil
	}
	if !visionSet && strings.EqualFold(c.LLMProvider, ProviderDeepSeek) {
		c.UseVision = false
	}
	return c
}

// Validate 校验任务参数
func (c TaskConfig) Validate() error {
	var errs []string
	if strings.TrimSpace(c.LLMProvider) == "" {
		errs = append(errs, "llm_provider is required")
	}
	if strings.TrimSpace(c.LLMModelName) == "" {
		errs = append(errs, "llm_model_name is required")
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, "max_steps must be positive")
	}
	if c.MaxActionsPerStep <= 0 {
		errs = append(errs, "max_actions_per_step must be positive")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, "llm_temperature must be between 0 and 2")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, "window size must be positive")
	}
	if c.BrowserPort < 0 || c.BrowserPort > 65535 {
		errs = append(errs, "browser_port out of range")
	}
	if len(errs) > 0 {
		return fmt.Errorf("task config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Params 按服务端声明顺序生成请求参数
func (c TaskConfig) Params(task string) Params {
	p := Params{
		{"agent_type", c.AgentType},
		{"llm_provider", c.LLMProvider},
		{"llm_model_name", c.LLMModelName},
		{"llm_num_ctx", c.LLMNumCtx},
		{"llm_temperature", c.LLMTemperature},
		{"llm_base_url", c.LLMBaseURL},
		{"llm_api_key", c.LLMAPIKey},
		{"use_own_browser", c.UseOwnBrowser},
		{"keep_browser_open", c.KeepBrowserOpen},
		{"headless", c.Headless},
		{"disable_security", c.DisableSecurity},
		{"window_w", c.WindowWidth},
		{"window_h", c.WindowHeight},
		{"save_recording_path", c.SaveRecordingPath},
		{"save_agent_history_path", c.SaveAgentHistoryPath},
		{"save_trace_path", c.SaveTracePath},
		{"enable_recording", c.EnableRecording},
		{"task", task},
		{"add_infos", c.AddInfos},
		{"max_steps", c.MaxSteps},
		{"use_vision", c.UseVision},
		{"max_actions_per_step", c.MaxActionsPerStep},
		{"tool_calling_method", c.ToolCallingMethod},
	}
	if c.BrowserPort > 0 {
		p = append(p, Param{"browser_port", c.BrowserPort})
	}
	return p
}

// =============================================================================
// 🔍 深度搜索参数
// =============================================================================

// DeepSearchConfig 是 run_deep_search 端点的参数集
type DeepSearchConfig struct {
	// 最大搜索轮数
	MaxSearchIterations int `yaml:"max_search_iterations" env:"MAX_SEARCH_ITERATIONS"`
	// 每轮最大查询数
	MaxQueryPerIteration int `yaml:"max_query_per_iteration" env:"MAX_QUERY_PER_ITERATION"`
	LLMProvider          string  `yaml:"llm_provider" env:"LLM_PROVIDER"`
	LLMModelName         string  `yaml:"llm_model_name" env:"LLM_MODEL_NAME"`
	LLMNumCtx            int     `yaml:"llm_num_ctx" env:"LLM_NUM_CTX"`
	LLMTemperature       float64 `yaml:"llm_temperature" env:"LLM_TEMPERATURE"`
	LLMBaseURL           string  `yaml:"llm_base_url" env:"LLM_BASE_URL"`
	LLMAPIKey            string  `yaml:"llm_api_key" env:"LLM_API_KEY"`
	UseVision            bool    `yaml:"use_vision" env:"USE_VISION"`
	UseOwnBrowser        bool    `yaml:"use_own_browser" env:"USE_OWN_BROWSER"`
	Headless             bool    `yaml:"headless" env:"HEADLESS"`
}

// DefaultDeepSearchConfig 返回默认深度搜索参数
func DefaultDeepSearchConfig() DeepSearchConfig {
	return DeepSearchConfig{
		MaxSearchIterations:  3,
		MaxQueryPerIteration: 1,
		LLMProvider:          "openai",
		LLMModelName:         "gpt-4o",
		LLMNumCtx:            32000,
		LLMTemperature:       1,
		UseVision:            true,
		UseOwnBrowser:        true,
		Headless:             false,
	}
}

// DeepSearchOverrides 深度搜索覆盖值
type DeepSearchOverrides struct {
	MaxSearchIterations  *int     `json:"max_search_iterations,omitempty"`
	MaxQueryPerIteration *int     `json:"max_query_per_iteration,omitempty"`
	LLMProvider          *string  `json:"llm_provider,omitempty"`
	LLMModelName         *string  `json:"llm_model_name,omitempty"`
	LLMNumCtx            *int     `json:"llm_num_ctx,omitempty"`
	LLMTemperature       *float64 `json:"llm_temperature,omitempty"`
	LLMBaseURL           *string  `json:"llm_base_url,omitempty"`
	LLMAPIKey            *string  `json:"llm_api_key,omitempty"`
	UseVision            *bool    `json:"use_vision,omitempty"`
	UseOwnBrowser        *bool    `json:"use_own_browser,omitempty"`
	Headless             *bool    `json:"headless,omitempty"`
}

// Merge 按字段合并覆盖值，DeepSeek 规则与 TaskConfig.Merge 相同
func (c DeepSearchConfig) Merge(o *DeepSearchOverrides) DeepSearchConfig {
	visionSet := false
	if o != nil {
		override(&c.MaxSearchIterations, o.MaxSearchIterations)
		override(&c.MaxQueryPerIteration, o.MaxQueryPerIteration)
		override(&c.LLMProvider, o.LLMProvider)
		override(&c.LLMModelName, o.LLMModelName)
		override(&c.LLMNumCtx, o.LLMNumCtx)
		override(&c.LLMTemperature, o.LLMTemperature)
		override(&c.LLMBaseURL, o.LLMBaseURL)
		override(&c.LLMAPIKey, o.LLMAPIKey)
		override(&c.UseVision, o.UseVision)
		override(&c.UseOwnBrowser, o.UseOwnBrowser)
		override(&c.Headless, o.Headless)
		visionSet = o.UseVision != nil
	}
	if !visionSet && strings.EqualFold(c.LLMProvider, ProviderDeepSeek) {
		c.UseVision = false
	}
	return c
}

// Validate 校验深度搜索参数
func (c DeepSearchConfig) Validate() error {
	var errs []string
	if c.MaxSearchIterations <= 0 {
		errs = append(errs, "max_search_iterations must be positive")
	}
	if c.MaxQueryPerIteration <= 0 {
		errs = append(errs, "max_query_per_iteration must be positive")
	}
	if strings.TrimSpace(c.LLMProvider) == "" {
		errs = append(errs, "llm_provider is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("deep search config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Params 按服务端声明顺序生成请求参数
func (c DeepSearchConfig) Params(researchTask string) Params {
	return Params{
		{"research_task", researchTask},
		{"max_search_iteration_input", c.MaxSearchIterations},
		{"max_query_per_iter_input", c.MaxQueryPerIteration},
		{"llm_provider", c.LLMProvider},
		{"llm_model_name", c.LLMModelName},
		{"llm_num_ctx", c.LLMNumCtx},
		{"llm_temperature", c.LLMTemperature},
		{"llm_base_url", c.LLMBaseURL},
		{"llm_api_key", c.LLMAPIKey},
		{"use_vision", c.UseVision},
		{"use_own_browser", c.UseOwnBrowser},
		{"headless", c.Headless},
	}
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
