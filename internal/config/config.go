package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	HTTPPort         string
	GRPCAddr         string
	DBPath           string
	InboxDir         string
	ExportDir        string
	UploadDir        string
	EnableWatcher    bool
	WorkerCount      int
	QueueSize        int
	JobTimeout       time.Duration
	Retry            RetryConfig
	LLM              LLMConfig
	Whisper          WhisperConfig
	Prompts          PromptConfig
	ConfigPath       string
	NotifyWebhookURL string
	LogLevel         string
	StrictConfig     bool
}

// RetryConfig bounds how often a failed meeting run is attempted.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// LLMConfig selects and parameterises the language model backend.
type LLMConfig struct {
	Provider         string
	Timeout          time.Duration
	MaxTokens        int
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OllamaBaseURL    string
	OllamaModel      string
	GeminiAPIKey     string
	GeminiModel      string
}

// WhisperConfig drives the transcription helper.
type WhisperConfig struct {
	Python    string
	Model     string
	Language  string
	Device    string
	BatchSize int
	HFToken   string
	UseStub   bool
	FFMPEGBin string
	Normalize bool
}

// Supported LLM provider names.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// SupportedProviders lists provider names accepted by LLM_PROVIDER.
var SupportedProviders = []string{ProviderClaude, ProviderOpenAI, ProviderOllama, ProviderGemini}

const (
	defaultPort           = ":8080"
	defaultDBPath         = "meetings.db"
	defaultInboxDir       = "runtime/inbox"
	defaultExportDir      = "runtime/exports"
	defaultUploadDir      = "runtime/uploads"
	defaultWorkerCount    = 2
	defaultQueueSize      = 64
	maxQueueSize          = 1024
	defaultJobTimeoutSec  = 2 * 60 * 60
	defaultRetryAttempts  = 3
	defaultRetryDelaySec  = 60
	defaultLLMTimeoutSec  = 300
	defaultMaxTokens      = 4096
	defaultWhisperBatch   = 16
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultOpenAIModel    = "gpt-4o"
	defaultOllamaModel    = "llama3.1"
	defaultGeminiModel    = "gemini-2.5-flash"
)

// Load reads configuration from environment, optional .env file, and an
// optional config file (yaml, json, or toml).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		StrictConfig:     getenvBool("STRICT_CONFIG", false),
		NotifyWebhookURL: strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		GRPCAddr:         os.Getenv("GRPC_ADDR"),
	}

	cfg.ConfigPath = getenv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(cfg.ConfigPath)
	if fileErr != nil {
		if cfg.StrictConfig && !errors.Is(fileErr, os.ErrNotExist) {
			return cfg, fmt.Errorf("config load failed (%s): %w", cfg.ConfigPath, fileErr)
		}
		if !errors.Is(fileErr, os.ErrNotExist) {
			slog.Warn("config load failed, using defaults", "path", cfg.ConfigPath, "error", fileErr)
		}
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") && !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	cfg.GRPCAddr = firstNonEmpty(cfg.GRPCAddr, fileCfg.GRPCAddr)
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, defaultDBPath)
	cfg.InboxDir = firstNonEmpty(os.Getenv("INBOX_DIR"), fileCfg.InboxDir, defaultInboxDir)
	cfg.ExportDir = firstNonEmpty(os.Getenv("EXPORT_DIR"), fileCfg.ExportDir, defaultExportDir)
	cfg.UploadDir = firstNonEmpty(os.Getenv("UPLOAD_DIR"), fileCfg.UploadDir, defaultUploadDir)
	cfg.EnableWatcher = getenvBool("ENABLE_WATCHER", boolOr(fileCfg.EnableWatcher, false))

	cfg.WorkerCount = clampInt(getenvInt("WORKER_COUNT", intOr(fileCfg.WorkerCount, defaultWorkerCount)), 1, 64)
	cfg.QueueSize = clampInt(getenvInt("QUEUE_SIZE", intOr(fileCfg.QueueSize, defaultQueueSize)), 1, maxQueueSize)
	if cfg.QueueSize < cfg.WorkerCount {
		slog.Warn("QUEUE_SIZE must be >= WORKER_COUNT, raising", "queue_size", cfg.QueueSize, "workers", cfg.WorkerCount)
		cfg.QueueSize = cfg.WorkerCount
	}
	cfg.JobTimeout = time.Duration(getenvInt("JOB_TIMEOUT_SEC", defaultJobTimeoutSec)) * time.Second

	cfg.Retry = RetryConfig{
		MaxAttempts: getenvInt("RETRY_MAX_ATTEMPTS", intOr(fileCfg.Retry.MaxAttempts, defaultRetryAttempts)),
		Delay:       time.Duration(getenvInt("RETRY_DELAY_SEC", intOr(fileCfg.Retry.DelaySec, defaultRetryDelaySec))) * time.Second,
	}

	cfg.LLM = LLMConfig{
		Provider:         strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("LLM_PROVIDER"), fileCfg.LLM.Provider, ProviderClaude))),
		Timeout:          time.Duration(getenvInt("LLM_TIMEOUT_SEC", intOr(fileCfg.LLM.TimeoutSec, defaultLLMTimeoutSec))) * time.Second,
		MaxTokens:        getenvInt("LLM_MAX_TOKENS", intOr(fileCfg.LLM.MaxTokens, defaultMaxTokens)),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), fileCfg.LLM.AnthropicModel, defaultAnthropicModel),
		AnthropicBaseURL: firstNonEmpty(os.Getenv("ANTHROPIC_BASE_URL"), fileCfg.LLM.AnthropicBaseURL, "https://api.anthropic.com"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      firstNonEmpty(os.Getenv("OPENAI_MODEL"), fileCfg.LLM.OpenAIModel, defaultOpenAIModel),
		OpenAIBaseURL:    firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), fileCfg.LLM.OpenAIBaseURL, "https://api.openai.com"),
		OllamaBaseURL:    firstNonEmpty(os.Getenv("OLLAMA_BASE_URL"), fileCfg.LLM.OllamaBaseURL, "http://localhost:11434"),
		OllamaModel:      firstNonEmpty(os.Getenv("OLLAMA_MODEL"), fileCfg.LLM.OllamaModel, defaultOllamaModel),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      firstNonEmpty(os.Getenv("GEMINI_MODEL"), fileCfg.LLM.GeminiModel, defaultGeminiModel),
	}

	cfg.Whisper = WhisperConfig{
		Python:    firstNonEmpty(os.Getenv("WHISPER_PYTHON"), fileCfg.Whisper.Python, "python3"),
		Model:     firstNonEmpty(os.Getenv("WHISPER_MODEL"), fileCfg.Whisper.Model, "large-v3"),
		Language:  firstNonEmpty(os.Getenv("WHISPER_LANGUAGE"), fileCfg.Whisper.Language, "tr"),
		Device:    strings.ToLower(firstNonEmpty(os.Getenv("WHISPER_DEVICE"), fileCfg.Whisper.Device, "auto")),
		BatchSize: clampInt(getenvInt("WHISPER_BATCH_SIZE", intOr(fileCfg.Whisper.BatchSize, defaultWhisperBatch)), 1, 256),
		HFToken:   os.Getenv("HF_TOKEN"),
		UseStub:   getenvBool("WHISPER_USE_STUB", boolOr(fileCfg.Whisper.UseStub, false)),
		FFMPEGBin: firstNonEmpty(os.Getenv("FFMPEG_BIN"), fileCfg.Whisper.FFMPEGBin, "ffmpeg"),
		Normalize: getenvBool("NORMALIZE_AUDIO", boolOr(fileCfg.Whisper.Normalize, false)),
	}

	cfg.Prompts = MergePromptConfig(DefaultPromptConfig(), fileCfg.Prompts)

	if err := cfg.Validate(); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		slog.Warn("config validation failed, continuing", "error", err)
	}

	return cfg, nil
}

// Validate reports settings that would make the service misbehave.
func (c Config) Validate() error {
	if !isSupportedProvider(c.LLM.Provider) {
		return fmt.Errorf("unknown LLM_PROVIDER %q (supported: %s)", c.LLM.Provider, strings.Join(SupportedProviders, ", "))
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return errors.New("RETRY_DELAY_SEC must not be negative")
	}
	if c.QueueSize < c.WorkerCount {
		return errors.New("QUEUE_SIZE must be >= WORKER_COUNT")
	}
	if c.JobTimeout <= 0 {
		return errors.New("JOB_TIMEOUT_SEC must be positive")
	}
	switch c.Whisper.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("WHISPER_DEVICE must be auto, cpu or cuda (got %q)", c.Whisper.Device)
	}
	return nil
}

func isSupportedProvider(name string) bool {
	for _, p := range SupportedProviders {
		if p == name {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer setting, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
