// Package config provides configuration loading for external providers
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Providers is the structure of the providers.yaml file. It holds the
// credentials and endpoints of every external service the platform
// talks to: media generation, fact checking, AI summaries and the
// workflow engine.
type Providers struct {
	TTS       TTSProvider      `yaml:"tts"`
	Video     VideoProvider    `yaml:"video"`
	FactCheck ServiceProvider  `yaml:"fact_check"`
	Summary   ServiceProvider  `yaml:"summary"`
	Engine    EngineProvider   `yaml:"engine"`
	Cache     CacheSettings    `yaml:"cache"`
	Voices    map[string]Voice `yaml:"voices"`
}

// TTSProvider configures the synchronous audio generation backend.
type TTSProvider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	CDNBase string `yaml:"cdn_base"`
}

// VideoProvider configures the asynchronous avatar video backend.
type VideoProvider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ServiceProvider is a generic HTTP service with bearer auth.
type ServiceProvider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// EngineProvider configures the external workflow automation engine.
type EngineProvider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// CacheSettings controls read-through caching of list endpoints.
type CacheSettings struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// Voice maps a language to a default narration voice.
type Voice struct {
	VoiceID   string  `yaml:"voice_id"`
	Stability float64 `yaml:"stability"`
	Clarity   float64 `yaml:"clarity"`
}

const defaultCacheTTLSeconds = 300

// LoadProviders loads provider configuration from a YAML file and
// applies environment variable overrides for secrets.
func LoadProviders(filepath string) (Providers, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return Providers{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var providers Providers
	if err := yaml.Unmarshal(data, &providers); err != nil {
		return Providers{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&providers)
	applyEnvOverrides(&providers)

	return providers, nil
}

// LoadProvidersOrDefault attempts to load provider config from file,
// falling back to environment-only configuration if the file doesn't exist.
func LoadProvidersOrDefault(filepath string) Providers {
	providers, err := LoadProviders(filepath)
	if err != nil {
		providers = Providers{}
		applyDefaults(&providers)
		applyEnvOverrides(&providers)
	}

	return providers
}

func applyDefaults(p *Providers) {
	if p.Cache.TTLSeconds <= 0 {
		p.Cache.TTLSeconds = defaultCacheTTLSeconds
	}

	if p.Voices == nil {
		p.Voices = map[string]Voice{}
	}
}

func applyEnvOverrides(p *Providers) {
	overrideString(&p.TTS.APIKey, "TTS_API_KEY")
	overrideString(&p.TTS.BaseURL, "TTS_BASE_URL")
	overrideString(&p.Video.APIKey, "VIDEO_API_KEY")
	overrideString(&p.Video.BaseURL, "VIDEO_BASE_URL")
	overrideString(&p.FactCheck.APIKey, "FACT_CHECK_API_KEY")
	overrideString(&p.FactCheck.BaseURL, "FACT_CHECK_BASE_URL")
	overrideString(&p.Summary.APIKey, "SUMMARY_API_KEY")
	overrideString(&p.Summary.BaseURL, "SUMMARY_BASE_URL")
	overrideString(&p.Engine.APIKey, "WORKFLOW_ENGINE_API_KEY")
	overrideString(&p.Engine.BaseURL, "WORKFLOW_ENGINE_BASE_URL")
}

func overrideString(target *string, envKey string) {
	if value := os.Getenv(envKey); value != "" {
		*target = value
	}
}

// ValidateProviders checks that every provider a running deployment
// needs is configured. Callers that only use a subset validate the
// sections they use.
func ValidateProviders(p Providers) error {
	if p.TTS.BaseURL == "" {
		return fmt.Errorf("tts: base_url is required")
	}

	if p.TTS.APIKey == "" {
		return fmt.Errorf("tts: api_key is required")
	}

	if p.Video.BaseURL == "" {
		return fmt.Errorf("video: base_url is required")
	}

	if p.Video.APIKey == "" {
		return fmt.Errorf("video: api_key is required")
	}

	if p.Engine.BaseURL == "" {
		return fmt.Errorf("engine: base_url is required")
	}

	for language, voice := range p.Voices {
		if voice.VoiceID == "" {
			return fmt.Errorf("voices[%s]: voice_id is required", language)
		}
	}

	return nil
}
