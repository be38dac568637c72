package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Provider struct {
	Name           string   `yaml:"name"`
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallback_models"`
	// KeyAccount names the keychain account holding the API key.
	// Empty means the provider is called without authentication.
	KeyAccount string `yaml:"key_account"`
}

type AI struct {
	Enabled        bool       `yaml:"enabled"`
	SystemPrompt   string     `yaml:"system_prompt"`
	MaxTokens      int        `yaml:"max_tokens"`
	Temperature    float64    `yaml:"temperature"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Providers      []Provider `yaml:"providers"`
}

type Signature struct {
	Contact string `yaml:"contact"` // messenger handle, without "@"
	Name    string `yaml:"name"`
}

type Letter struct {
	Enabled         bool      `yaml:"enabled"`
	MaxChars        int       `yaml:"max_chars"`
	MaxParagraphs   int       `yaml:"max_paragraphs"`
	Greetings       []string  `yaml:"greetings"`
	DefaultGreeting string    `yaml:"default_greeting"`
	Signature       Signature `yaml:"signature"`
	AI              AI        `yaml:"ai"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Browser struct {
		// ExecPath is the Chromium binary to launch. Empty means attach to
		// an already running browser at DebugURL.
		ExecPath    string `yaml:"exec_path"`
		UserDataDir string `yaml:"user_data_dir"`
		DebugURL    string `yaml:"debug_url"`
		Headless    bool   `yaml:"headless"`
	} `yaml:"browser"`

	Search struct {
		BaseURL  string `yaml:"base_url"`
		Query    string `yaml:"query"`
		AreaIDs  []int  `yaml:"area_ids"`
		MaxPages int    `yaml:"max_pages"`
		PerPage  int    `yaml:"per_page"`
	} `yaml:"search"`

	Limits struct {
		MaxApplications     int `yaml:"max_applications"`
		MinDelaySeconds     int `yaml:"min_delay_seconds"`
		MaxDelaySeconds     int `yaml:"max_delay_seconds"`
		LongPauseEvery      int `yaml:"long_pause_every"`
		LongPauseMinSeconds int `yaml:"long_pause_min_seconds"`
		LongPauseMaxSeconds int `yaml:"long_pause_max_seconds"`
		ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
	} `yaml:"limits"`

	Filters struct {
		SkipWithTests    bool     `yaml:"skip_with_tests"`
		SkipExternal     bool     `yaml:"skip_external"`
		BlockedKeywords  []string `yaml:"blocked_keywords"`
		BlockedEmployers []string `yaml:"blocked_employers"`
	} `yaml:"filters"`

	Resume struct {
		PreferredTitle string `yaml:"preferred_title"`
		ProfileURL     string `yaml:"profile_url"`
	} `yaml:"resume"`

	Letter Letter `yaml:"letter"`

	Auth struct {
		LoginURL string `yaml:"login_url"`
		Email    string `yaml:"email"`
		IMAP     struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Mailbox  string `yaml:"mailbox"`
		} `yaml:"imap"`
	} `yaml:"auth"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Search.MaxPages <= 0 {
		cfg.Search.MaxPages = 5
	}
	if cfg.Search.PerPage <= 0 {
		cfg.Search.PerPage = 20
	}
	if cfg.Limits.MaxApplications <= 0 {
		cfg.Limits.MaxApplications = 20
	}
	if cfg.Limits.MinDelaySeconds <= 0 {
		cfg.Limits.MinDelaySeconds = 10
	}
	if cfg.Limits.MaxDelaySeconds <= 0 {
		cfg.Limits.MaxDelaySeconds = 30
	}
	if cfg.Limits.LongPauseEvery <= 0 {
		cfg.Limits.LongPauseEvery = 5
	}
	if cfg.Limits.LongPauseMinSeconds <= 0 {
		cfg.Limits.LongPauseMinSeconds = 45
	}
	if cfg.Limits.LongPauseMaxSeconds <= 0 {
		cfg.Limits.LongPauseMaxSeconds = 90
	}
	if cfg.Limits.ProbeTimeoutSeconds <= 0 {
		cfg.Limits.ProbeTimeoutSeconds = 5
	}
	if cfg.Letter.MaxChars <= 0 {
		cfg.Letter.MaxChars = 700
	}
	if cfg.Letter.MaxParagraphs <= 0 {
		cfg.Letter.MaxParagraphs = 5
	}
	if len(cfg.Letter.Greetings) == 0 {
		cfg.Letter.Greetings = []string{"hello", "hi ", "hi,", "dear", "good morning", "good afternoon", "greetings"}
	}
	if cfg.Letter.DefaultGreeting == "" {
		cfg.Letter.DefaultGreeting = "Hello!"
	}
	if cfg.Letter.AI.MaxTokens <= 0 {
		cfg.Letter.AI.MaxTokens = 500
	}
	if cfg.Letter.AI.Temperature <= 0 {
		cfg.Letter.AI.Temperature = 0.7
	}
	if cfg.Letter.AI.TimeoutSeconds <= 0 {
		cfg.Letter.AI.TimeoutSeconds = 30
	}
	if cfg.Browser.DebugURL == "" {
		cfg.Browser.DebugURL = "http://127.0.0.1:9222"
	}
	if cfg.Auth.IMAP.Port == 0 {
		cfg.Auth.IMAP.Port = 993
	}
	if cfg.Auth.IMAP.Mailbox == "" {
		cfg.Auth.IMAP.Mailbox = "INBOX"
	}
}
