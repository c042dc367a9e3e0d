package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"story":  {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"image":  {"openai", "placeholder"},
	"speech": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	for i, user := range cfg.Server.Users {
		name, _, ok := strings.Cut(user, ":")
		if !ok || name == "" {
			errs = append(errs, fmt.Errorf("server.users[%d] must have the form \"name:password\"", i))
		}
	}

	// Client
	if cfg.Client.LogLevel != "" && !cfg.Client.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("client.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Client.LogLevel))
	}
	if cfg.Client.TTS.Enabled && cfg.Client.TTS.PlayerCommand == "" {
		errs = append(errs, errors.New("client.tts.player_command is required when client.tts.enabled is true"))
	}

	// Providers
	validateProviderName("story", cfg.Providers.Story.Name)
	validateProviderName("image", cfg.Providers.Image.Name)
	validateProviderName("speech", cfg.Providers.Speech.Name)

	if cfg.Providers.Speech.Name == "elevenlabs" {
		if cfg.Providers.Speech.APIKey == "" {
			errs = append(errs, errors.New("providers.speech.api_key is required for elevenlabs"))
		}
		if cfg.Providers.Speech.VoiceID == "" {
			errs = append(errs, errors.New("providers.speech.voice_id is required for elevenlabs"))
		}
	}
	if cfg.Providers.Speech.Name == "" {
		slog.Warn("providers.speech is not configured; narration audio will be unavailable")
	}

	// Limits
	if cfg.Limits.MaxRequests < 0 {
		errs = append(errs, fmt.Errorf("limits.max_requests %d must not be negative", cfg.Limits.MaxRequests))
	}
	if cfg.Limits.MaxRequests > 0 && cfg.Limits.Window <= 0 {
		errs = append(errs, errors.New("limits.window must be positive when limits.max_requests is set"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
