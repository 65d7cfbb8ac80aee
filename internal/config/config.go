package config

import "fmt"

const (
	// DefaultListenAddr is used when the deployment does not inject an explicit address.
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultModel      = "eleven_turbo_v2_5"
	DefaultLogLevel   = "info"

	// DefaultOptimizeStreamingLatency trades a little quality for first-byte
	// latency on the provider side. Range 0 (off) to 4 (max).
	DefaultOptimizeStreamingLatency = 3

	// DefaultRateLimitWindowSeconds and DefaultRateLimitMax bound how many
	// synthesis requests one (origin, invitation) pair may issue per window.
	DefaultRateLimitWindowSeconds = 60
	DefaultRateLimitMax           = 3

	DefaultCacheMaxSizeMB = 100
)

// Config captures bootstrap configuration assembled by the Loader from a YAML
// file, an injected JSON payload (`VOICEGATE_CONFIG`) and environment overrides.
type Config struct {
	ListenAddr string
	LogLevel   string

	// Provider settings. APIKey is a secret and must never be logged or
	// returned to callers.
	APIKey                   string
	FallbackVoiceID          string
	Model                    string
	OptimizeStreamingLatency int

	// Directory is the invitation/persona read surface.
	DirectoryBaseURL string
	DirectoryToken   string

	RateLimitWindowSeconds int
	RateLimitMax           int

	// RedisAddr, when set, switches the quota store to Redis so multiple
	// instances share one window. Empty keeps the in-process store.
	RedisAddr string

	CacheDir       string
	CacheMaxSizeMB int

	// UseStubSynthesizer replaces the provider client with a deterministic
	// stub. For CI and local development only.
	UseStubSynthesizer bool
}

// Validate applies defaults and raises an error when required fields are
// missing or out of range.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.APIKey == "" && !c.UseStubSynthesizer {
		return fmt.Errorf("config: api_key is required (set ELEVENLABS_API_KEY)")
	}
	if c.FallbackVoiceID == "" {
		return fmt.Errorf("config: fallback_voice_id is required (set ELEVENLABS_DEFAULT_VOICE_ID)")
	}
	if c.DirectoryBaseURL == "" {
		return fmt.Errorf("config: directory_base_url is required")
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RateLimitWindowSeconds == 0 {
		c.RateLimitWindowSeconds = DefaultRateLimitWindowSeconds
	}
	if c.RateLimitWindowSeconds < 0 {
		return fmt.Errorf("config: rate_limit_window_seconds must be positive, got %d", c.RateLimitWindowSeconds)
	}
	if c.RateLimitMax == 0 {
		c.RateLimitMax = DefaultRateLimitMax
	}
	if c.RateLimitMax < 0 {
		return fmt.Errorf("config: rate_limit_max must be positive, got %d", c.RateLimitMax)
	}
	if c.OptimizeStreamingLatency < 0 || c.OptimizeStreamingLatency > 4 {
		return fmt.Errorf("config: optimize_streaming_latency must be between 0 and 4, got %d", c.OptimizeStreamingLatency)
	}
	return nil
}
