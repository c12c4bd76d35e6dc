package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	HTTPPort      string            `json:"http_port" yaml:"http_port" toml:"http_port"`
	GRPCAddr      string            `json:"grpc_addr" yaml:"grpc_addr" toml:"grpc_addr"`
	DBPath        string            `json:"db_path" yaml:"db_path" toml:"db_path"`
	InboxDir      string            `json:"inbox_dir" yaml:"inbox_dir" toml:"inbox_dir"`
	ExportDir     string            `json:"export_dir" yaml:"export_dir" toml:"export_dir"`
	UploadDir     string            `json:"upload_dir" yaml:"upload_dir" toml:"upload_dir"`
	EnableWatcher *bool             `json:"enable_watcher" yaml:"enable_watcher" toml:"enable_watcher"`
	WorkerCount   *int              `json:"worker_count" yaml:"worker_count" toml:"worker_count"`
	QueueSize     *int              `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
	Retry         retryFileConfig   `json:"retry" yaml:"retry" toml:"retry"`
	LLM           llmFileConfig     `json:"llm" yaml:"llm" toml:"llm"`
	Whisper       whisperFileConfig `json:"whisper" yaml:"whisper" toml:"whisper"`
	Prompts       PromptConfig      `json:"prompts" yaml:"prompts" toml:"prompts"`
}

type retryFileConfig struct {
	MaxAttempts *int `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	DelaySec    *int `json:"delay_sec" yaml:"delay_sec" toml:"delay_sec"`
}

type llmFileConfig struct {
	Provider         string `json:"provider" yaml:"provider" toml:"provider"`
	TimeoutSec       *int   `json:"timeout_sec" yaml:"timeout_sec" toml:"timeout_sec"`
	MaxTokens        *int   `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	AnthropicModel   string `json:"anthropic_model" yaml:"anthropic_model" toml:"anthropic_model"`
	AnthropicBaseURL string `json:"anthropic_base_url" yaml:"anthropic_base_url" toml:"anthropic_base_url"`
	OpenAIModel      string `json:"openai_model" yaml:"openai_model" toml:"openai_model"`
	OpenAIBaseURL    string `json:"openai_base_url" yaml:"openai_base_url" toml:"openai_base_url"`
	OllamaBaseURL    string `json:"ollama_base_url" yaml:"ollama_base_url" toml:"ollama_base_url"`
	OllamaModel      string `json:"ollama_model" yaml:"ollama_model" toml:"ollama_model"`
	GeminiModel      string `json:"gemini_model" yaml:"gemini_model" toml:"gemini_model"`
}

type whisperFileConfig struct {
	Python    string `json:"python" yaml:"python" toml:"python"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	Language  string `json:"language" yaml:"language" toml:"language"`
	Device    string `json:"device" yaml:"device" toml:"device"`
	BatchSize *int   `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	UseStub   *bool  `json:"use_stub" yaml:"use_stub" toml:"use_stub"`
	FFMPEGBin string `json:"ffmpeg_bin" yaml:"ffmpeg_bin" toml:"ffmpeg_bin"`
	Normalize *bool  `json:"normalize" yaml:"normalize" toml:"normalize"`
}

// loadFileConfig decodes path by extension; yaml is the default.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := decodeByExt(path, data, &cfg); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

func decodeByExt(path string, data []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, out)
	case ".toml":
		return toml.Unmarshal(data, out)
	default:
		return yaml.Unmarshal(data, out)
	}
}
