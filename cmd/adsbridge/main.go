// =============================================================================
// AdsBridge 主入口
// =============================================================================
// 在 AdsPower 环境中运行 browser-use 自动化任务的命令行与 HTTP 服务
//
// 使用方法:
//
//	adsbridge run --profile <id> --task "..."   # 启动环境 → 任务 → 停止环境
//	adsbridge stop-task                         # 停止正在运行的任务
//	adsbridge close-browser                     # 关闭自动化服务的浏览器
//	adsbridge recordings --path ./tmp/record_videos
//	adsbridge serve --config config.yaml        # 启动 HTTP 服务
//	adsbridge version                           # 显示版本信息
//	adsbridge health                            # 健康检查
// =============================================================================

// @title AdsBridge API
// @version 1.0.0
// @description AdsBridge runs browser-use automation tasks inside AdsPower browser profiles.
// @description
// @description ## Features
// @description - Orchestrated runs: start profile, run task, always stop profile
// @description - Direct automation calls (tasks, deep research, recordings, models)
// @description - AdsPower profile listing and lifecycle
// @description - Health monitoring and metrics

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/config"
	"github.com/BaSui01/adsbridge/orchestrator"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := dispatch(ctx, os.Args[1], os.Args[2:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// dispatch 执行子命令并返回退出码
func dispatch(ctx context.Context, cmd string, args []string, stdout, stderr io.Writer) int {
	switch cmd {
	case "run":
		return runTask(ctx, args, stdout, stderr)
	case "stop-task":
		return runSimple(ctx, "stop-task", args, stdout, stderr, func(ctx context.Context, a *app) (json.RawMessage, error) {
			return a.automation.Stop(ctx)
		})
	case "close-browser":
		return runSimple(ctx, "close-browser", args, stdout, stderr, func(ctx context.Context, a *app) (json.RawMessage, error) {
			return a.automation.CloseBrowser(ctx)
		})
	case "recordings":
		return runRecordings(ctx, args, stdout, stderr)
	case "serve":
		return runServe(ctx, args, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "health":
		return runHealthCheck(ctx, args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return 1
	}
}

// =============================================================================
// 🏃 run 命令
// =============================================================================

func runTask(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	profile := fs.String("profile", "", "AdsPower profile (user) ID")
	task := fs.String("task", "", "Task for the automation agent")
	provider := fs.String("provider", "", "LLM provider override")
	model := fs.String("model", "", "LLM model name override")
	maxSteps := fs.Int("max-steps", 0, "Maximum agent steps (0 keeps the default)")
	headless := fs.Bool("headless", false, "Run the automation browser headless")
	var vision optionalBool
	fs.Var(&vision, "vision", "Enable or disable vision (true/false)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *profile == "" || *task == "" {
		fmt.Fprintln(stderr, "run requires --profile and --task")
		return 2
	}

	overrides := &browseruse.TaskOverrides{}
	if *provider != "" {
		overrides.LLMProvider = provider
	}
	if *model != "" {
		overrides.LLMModelName = model
	}
	if *maxSteps > 0 {
		overrides.MaxSteps = maxSteps
	}
	if *headless {
		overrides.Headless = headless
	}
	if vision.set {
		overrides.UseVision = &vision.value
	}

	a, logger, ok := setup(*configPath, stderr)
	if !ok {
		return 1
	}
	defer logger.Sync()
	defer a.Close()

	result, err := a.runner.Run(ctx, orchestrator.Request{
		ProfileID: *profile,
		Task:      *task,
		Overrides: overrides,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Run failed: %v\n", err)
		return 1
	}
	return printRaw(stdout, result.Output)
}

func runRecordings(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("recordings", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	path := fs.String("path", "", "Recording directory (defaults to the configured save_recording_path)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, logger, ok := setup(*configPath, stderr)
	if !ok {
		return 1
	}
	defer logger.Sync()
	defer a.Close()

	out, err := a.automation.ListRecordings(ctx, *path)
	if err != nil {
		fmt.Fprintf(stderr, "recordings failed: %v\n", err)
		return 1
	}
	return printRaw(stdout, out)
}

// runSimple 执行无参数的自动化调用
func runSimple(ctx context.Context, name string, args []string, stdout, stderr io.Writer, call func(context.Context, *app) (json.RawMessage, error)) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, logger, ok := setup(*configPath, stderr)
	if !ok {
		return 1
	}
	defer logger.Sync()
	defer a.Close()

	out, err := call(ctx, a)
	if err != nil {
		fmt.Fprintf(stderr, "%s failed: %v\n", name, err)
		return 1
	}
	return printRaw(stdout, out)
}

// setup 为一次性命令加载配置并装配客户端；日志写到 stderr，stdout 只留结果
func setup(configPath string, stderr io.Writer) (*app, *zap.Logger, bool) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, nil, false
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		_ = logger.Sync()
		return nil, nil, false
	}
	return a, logger, true
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func printRaw(w io.Writer, out json.RawMessage) int {
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	fmt.Fprintln(w, string(out))
	return 0
}

// optionalBool 区分未设置与 false
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) String() string {
	if b == nil || !b.set {
		return ""
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	b.set, b.value = true, v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting AdsBridge",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize server", zap.Error(err))
		return 1
	}
	if err := server.Start(); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		server.Close(context.Background())
		return 1
	}

	runErr := server.Run(ctx)
	server.Close(context.WithoutCancel(ctx))
	if runErr != nil {
		logger.Error("Server stopped with error", zap.Error(runErr))
		return 1
	}

	logger.Info("AdsBridge stopped")
	return 0
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *addr+"/health", nil)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}

	fmt.Fprintln(stdout, "OK")
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "AdsBridge %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `AdsBridge - browser-use automation inside AdsPower profiles

Usage:
  adsbridge <command> [options]

Commands:
  run            Start a profile, run one task, stop the profile
  stop-task      Stop the running automation task
  close-browser  Close the automation service's browser
  recordings     List recordings
  serve          Start the HTTP server
  version        Show version information
  health         Check server health
  help           Show this help message

Options for 'run':
  --profile <id>     AdsPower profile (user) ID (required)
  --task <text>      Task description (required)
  --provider <name>  LLM provider override
  --model <name>     LLM model override
  --vision=<bool>    Enable or disable vision
  --max-steps <n>    Maximum agent steps
  --headless         Run the automation browser headless
  --config <path>    Path to configuration file (YAML)

Examples:
  adsbridge run --profile jk1x2y3 --task "open example.com and read the title"
  adsbridge run --profile jk1x2y3 --task "..." --provider deepseek --model deepseek-chat
  adsbridge recordings --path ./tmp/record_videos
  adsbridge serve --config /etc/adsbridge/config.yaml
  adsbridge health --addr http://localhost:8080
  adsbridge version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
