package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from an optional YAML file, the VOICEGATE_CONFIG
// JSON payload and individual environment variables, in that order of
// precedence. Tests can override Lookup and ReadFile to inject deterministic
// inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// payload mirrors the externally settable subset of Config. The same shape is
// accepted from the YAML file and the JSON environment payload.
type payload struct {
	ListenAddr               string `json:"listen_addr" yaml:"listen_addr"`
	LogLevel                 string `json:"log_level" yaml:"log_level"`
	APIKey                   string `json:"api_key" yaml:"api_key"`
	FallbackVoiceID          string `json:"fallback_voice_id" yaml:"fallback_voice_id"`
	Model                    string `json:"model" yaml:"model"`
	OptimizeStreamingLatency *int   `json:"optimize_streaming_latency" yaml:"optimize_streaming_latency"`
	DirectoryBaseURL         string `json:"directory_base_url" yaml:"directory_base_url"`
	DirectoryToken           string `json:"directory_token" yaml:"directory_token"`
	RateLimitWindowSeconds   *int   `json:"rate_limit_window_seconds" yaml:"rate_limit_window_seconds"`
	RateLimitMax             *int   `json:"rate_limit_max" yaml:"rate_limit_max"`
	RedisAddr                string `json:"redis_addr" yaml:"redis_addr"`
	CacheDir                 string `json:"cache_dir" yaml:"cache_dir"`
	CacheMaxSizeMB           *int   `json:"cache_max_size_mb" yaml:"cache_max_size_mb"`
	UseStubSynthesizer       *bool  `json:"use_stub_synthesizer" yaml:"use_stub_synthesizer"`
}

// Load retrieves the gateway configuration and validates it.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Config{
		ListenAddr:               DefaultListenAddr,
		OptimizeStreamingLatency: DefaultOptimizeStreamingLatency,
		CacheMaxSizeMB:           DefaultCacheMaxSizeMB,
	}

	if path, ok := l.Lookup("VOICEGATE_CONFIG_FILE"); ok && strings.TrimSpace(path) != "" {
		data, err := l.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var p payload
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		p.apply(&cfg)
	}

	if raw, ok := l.Lookup("VOICEGATE_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		var p payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Config{}, fmt.Errorf("config: decode VOICEGATE_CONFIG: %w", err)
		}
		p.apply(&cfg)
	}

	overrideString(l.Lookup, "VOICEGATE_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "VOICEGATE_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "ELEVENLABS_API_KEY", &cfg.APIKey)
	overrideString(l.Lookup, "ELEVENLABS_DEFAULT_VOICE_ID", &cfg.FallbackVoiceID)
	overrideString(l.Lookup, "VOICEGATE_DIRECTORY_URL", &cfg.DirectoryBaseURL)
	overrideString(l.Lookup, "VOICEGATE_DIRECTORY_TOKEN", &cfg.DirectoryToken)
	overrideString(l.Lookup, "VOICEGATE_REDIS_ADDR", &cfg.RedisAddr)

	if raw, ok := l.Lookup("VOICEGATE_USE_STUB_SYNTHESIZER"); ok && strings.TrimSpace(raw) != "" {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("config: decode VOICEGATE_USE_STUB_SYNTHESIZER: %w", err)
		}
		cfg.UseStubSynthesizer = v
	}

	// Default cache directory next to the service data dir.
	if cfg.CacheDir == "" {
		if dataDir, ok := l.Lookup("VOICEGATE_DATA_DIR"); ok && dataDir != "" {
			cfg.CacheDir = filepath.Join(dataDir, "cache")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p payload) apply(cfg *Config) {
	if p.ListenAddr != "" {
		cfg.ListenAddr = p.ListenAddr
	}
	if p.LogLevel != "" {
		cfg.LogLevel = p.LogLevel
	}
	if p.APIKey != "" {
		cfg.APIKey = p.APIKey
	}
	if p.FallbackVoiceID != "" {
		cfg.FallbackVoiceID = p.FallbackVoiceID
	}
	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.OptimizeStreamingLatency != nil {
		cfg.OptimizeStreamingLatency = *p.OptimizeStreamingLatency
	}
	if p.DirectoryBaseURL != "" {
		cfg.DirectoryBaseURL = p.DirectoryBaseURL
	}
	if p.DirectoryToken != "" {
		cfg.DirectoryToken = p.DirectoryToken
	}
	if p.RateLimitWindowSeconds != nil {
		cfg.RateLimitWindowSeconds = *p.RateLimitWindowSeconds
	}
	if p.RateLimitMax != nil {
		cfg.RateLimitMax = *p.RateLimitMax
	}
	if p.RedisAddr != "" {
		cfg.RedisAddr = p.RedisAddr
	}
	if p.CacheDir != "" {
		cfg.CacheDir = p.CacheDir
	}
	if p.CacheMaxSizeMB != nil {
		cfg.CacheMaxSizeMB = *p.CacheMaxSizeMB
	}
	if p.UseStubSynthesizer != nil {
		cfg.UseStubSynthesizer = *p.UseStubSynthesizer
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}
