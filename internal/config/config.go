// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Profile ProfileConfig `mapstructure:"profile" yaml:"profile"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Apply   ApplyConfig   `mapstructure:"apply" yaml:"apply"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig tunes the launched Chrome instance.
type BrowserConfig struct {
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath       string `mapstructure:"exec_path" yaml:"exec_path"`
	StartMaximized bool   `mapstructure:"start_maximized" yaml:"start_maximized"`
	Debug          bool   `mapstructure:"debug" yaml:"debug"`
}

// NetworkConfig tunes navigation and stabilization behavior.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	// SettleDelay is the short pause inserted after every UI mutation so the
	// host page's client-side scripting can apply asynchronous updates.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// LLMConfig configures the remote completion provider and the answer gateway
// built on top of it.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// MaxAttempts and BaseDelay drive the gateway's rate-limit retry loop:
	// before attempt n (n >= 2) the gateway waits BaseDelay * 2^n.
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	// RequestsPerSecond paces calls to the provider ahead of its own limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// DocumentsConfig points at the candidate's local documents.
type DocumentsConfig struct {
	Resume      string `mapstructure:"resume" yaml:"resume"`
	CoverLetter string `mapstructure:"cover_letter" yaml:"cover_letter"`
}

// ProfileConfig holds the static candidate identity used for every attempt.
type ProfileConfig struct {
	Username  string          `mapstructure:"username" yaml:"username"`
	Password  string          `mapstructure:"password" yaml:"password"`
	Phone     string          `mapstructure:"phone" yaml:"phone"`
	Salary    string          `mapstructure:"salary" yaml:"salary"`
	Documents DocumentsConfig `mapstructure:"documents" yaml:"documents"`
	// Essential maps question keywords to fixed identity answers. These
	// always win over generated answers so identity fields stay consistent.
	Essential map[string]string `mapstructure:"essential" yaml:"essential"`
	// Predefined maps question keywords to canned answers used for radio
	// groups and as gateway fallbacks.
	Predefined map[string]string `mapstructure:"predefined" yaml:"predefined"`
	// CountryToken is matched against country-code dropdown options.
	CountryToken string `mapstructure:"country_token" yaml:"country_token"`
	DialCode     string `mapstructure:"dial_code" yaml:"dial_code"`
	// FallbackTitle answers title/position questions when the provider is
	// unreachable.
	FallbackTitle string `mapstructure:"fallback_title" yaml:"fallback_title"`
}

// SearchConfig drives the job discovery loop.
type SearchConfig struct {
	Positions        []string `mapstructure:"positions" yaml:"positions"`
	Locations        []string `mapstructure:"locations" yaml:"locations"`
	ExperienceLevels []int    `mapstructure:"experience_levels" yaml:"experience_levels"`
	BlacklistTitles  []string `mapstructure:"blacklist_titles" yaml:"blacklist_titles"`
	MaxJobsPerSearch int      `mapstructure:"max_jobs_per_search" yaml:"max_jobs_per_search"`
	RecordsFile      string   `mapstructure:"records_file" yaml:"records_file"`
}

// ApplyConfig tunes the step controller.
type ApplyConfig struct {
	// MaxSteps is the hard ceiling on dialog steps per attempt, breaking
	// loops caused by UI structures we never recognize.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// StepWait is the pause at the top of each step before inspection.
	StepWait time.Duration `mapstructure:"step_wait" yaml:"step_wait"`
	// DropdownWait is the pause after opening a custom dropdown before its
	// option items are read.
	DropdownWait time.Duration `mapstructure:"dropdown_wait" yaml:"dropdown_wait"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "applypilot")
	v.SetDefault("logger.log_file", "applypilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.start_maximized", true)
	v.SetDefault("browser.debug", false)

	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.post_load_wait", "2s")
	v.SetDefault("network.settle_delay", "500ms")

	v.SetDefault("llm.endpoint", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("llm.model", "mixtral-8x7b-32768")
	v.SetDefault("llm.api_timeout", "30s")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 50)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.base_delay", "2s")
	v.SetDefault("llm.requests_per_second", 0.5)

	v.SetDefault("profile.country_token", "india")
	v.SetDefault("profile.dial_code", "+91")
	v.SetDefault("profile.fallback_title", "Software Engineer")

	v.SetDefault("search.max_jobs_per_search", 10)
	v.SetDefault("search.records_file", "applications.jsonl")

	v.SetDefault("apply.max_steps", 20)
	v.SetDefault("apply.step_wait", "2s")
	v.SetDefault("apply.dropdown_wait", "1s")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for values that would make a run
// unworkable. It is called once at startup, after unmarshalling.
func (c *Config) Validate() error {
	if c.Apply.MaxSteps <= 0 {
		return fmt.Errorf("apply.max_steps must be a positive integer")
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be a positive integer")
	}
	if c.LLM.BaseDelay < 0 {
		return fmt.Errorf("llm.base_delay must not be negative")
	}
	if c.Network.SettleDelay < 0 {
		return fmt.Errorf("network.settle_delay must not be negative")
	}
	if c.Profile.Documents.Resume != "" {
		if _, err := os.Stat(c.Profile.Documents.Resume); err != nil {
			return fmt.Errorf("profile.documents.resume is not readable: %w", err)
		}
	}
	return nil
}
