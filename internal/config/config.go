// Package config provides the configuration schema and loader for the
// federkiel game client and story server.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. One file configures both
// binaries; each reads the sections it needs. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Providers ProvidersConfig `yaml:"providers"`
	Limits    LimitsConfig    `yaml:"limits"`
}

// ServerConfig holds network, auth and logging settings for federkiel-server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Users lists accepted credentials as "name:password" pairs, matched
	// against the X-App-Password request header. Empty disables auth.
	Users []string `yaml:"users"`
}

// ClientConfig holds settings for the terminal game client.
type ClientConfig struct {
	// ServerURL is the base URL of the story server (no trailing slash).
	ServerURL string `yaml:"server_url"`

	// Password is sent as the X-App-Password header, formatted
	// "name:password".
	Password string `yaml:"password"`

	// SavePath overrides the default save file location
	// (~/.federkiel/player.json).
	SavePath string `yaml:"save_path"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TTS configures spoken narration.
	TTS TTSClientConfig `yaml:"tts"`
}

// TTSClientConfig controls spoken narration in the client.
type TTSClientConfig struct {
	// Enabled turns narration on. Off by default.
	Enabled bool `yaml:"enabled"`

	// PlayerCommand is the audio player the narration is piped into,
	// e.g. "mpv --really-quiet -". Required when Enabled is true.
	PlayerCommand string `yaml:"player_command"`
}

// ProvidersConfig declares the backends the story server uses.
type ProvidersConfig struct {
	// Story generates the narration itself and the auxiliary texts (titles,
	// summaries).
	Story ProviderEntry `yaml:"story"`

	// Image generates turn illustrations. Name "placeholder" (or empty)
	// serves a static picture instead of calling an image API.
	Image ProviderEntry `yaml:"image"`

	// Speech synthesizes narration audio for the /api/tts endpoint.
	Speech SpeechEntry `yaml:"speech"`
}

// ProviderEntry is the common configuration block shared by provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "anthropic", "openai",
	// "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "claude-3-5-sonnet-latest", "dall-e-3").
	Model string `yaml:"model"`
}

// SpeechEntry configures the speech synthesis backend.
type SpeechEntry struct {
	// Name selects the provider implementation. Currently "elevenlabs";
	// empty disables the /api/tts endpoint.
	Name string `yaml:"name"`

	// APIKey is the provider API key.
	APIKey string `yaml:"api_key"`

	// VoiceID selects the narration voice.
	VoiceID string `yaml:"voice_id"`

	// Model selects the synthesis model (e.g., "eleven_multilingual_v2").
	Model string `yaml:"model"`

	// OutputFormat selects the audio encoding (e.g., "mp3_44100_128").
	OutputFormat string `yaml:"output_format"`
}

// LimitsConfig holds rate limiting settings for the server.
type LimitsConfig struct {
	// MaxRequests is the number of requests a client may spend per window.
	// Zero disables rate limiting.
	MaxRequests int `yaml:"max_requests"`

	// Window is the refill interval for the token bucket.
	Window time.Duration `yaml:"window"`
}
