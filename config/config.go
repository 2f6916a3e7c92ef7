package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Speech  SpeechConfig  `yaml:"speech"`
	TTS     TTSConfig     `yaml:"tts"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	RateLimit int    `yaml:"rate_limit"`
	BodyLimit string `yaml:"body_limit"`
}

type LLMConfig struct {
	Provider string      `yaml:"provider"`
	APIKey   string      `yaml:"api_key"`
	Model    string      `yaml:"model"`
	Retry    RetryConfig `yaml:"retry"`
}

// RetryConfig is the optional retry policy around completion calls.
// MaxAttempts of 1 means a single call and no retry.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type SpeechConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Language   string        `yaml:"language"`
	SampleRate int           `yaml:"sample_rate"`
	Encoding   string        `yaml:"encoding"`
	Timeout    time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Language    string `yaml:"language"`
	VoiceGender string `yaml:"voice_gender"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
	Secure     bool          `yaml:"secure"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads the YAML file at path, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 20
	}
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = "10MB"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-1.5-flash"
	}
	if c.LLM.Retry.MaxAttempts == 0 {
		c.LLM.Retry.MaxAttempts = 1
	}
	if c.LLM.Retry.InitialDelay == 0 {
		c.LLM.Retry.InitialDelay = 200 * time.Millisecond
	}
	if c.LLM.Retry.MaxDelay == 0 {
		c.LLM.Retry.MaxDelay = 5 * time.Second
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en-US"
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = 48000
	}
	if c.Speech.Encoding == "" {
		c.Speech.Encoding = "webm_opus"
	}
	if c.Speech.Timeout == 0 {
		c.Speech.Timeout = 10 * time.Second
	}
	if c.TTS.Language == "" {
		c.TTS.Language = c.Speech.Language
	}
	if c.TTS.VoiceGender == "" {
		c.TTS.VoiceGender = "female"
	}
	if c.Session.Secret == "" {
		c.Session.Secret = os.Getenv("SESSION_SECRET")
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "nutrition_session"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
