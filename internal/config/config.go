// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. COURIER_BATCH_INTER_SEND_DELAY_MS.
const EnvPrefix = "COURIER"

// Bounds for the inter-send delay, in milliseconds.
const (
	MinInterSendDelayMs     = 250
	MaxInterSendDelayMs     = 60000
	DefaultInterSendDelayMs = 1200
)

// Text confirmation heuristics.
const (
	TextConfirmCountOrCleared = "count_or_cleared"
	TextConfirmCount          = "count"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Session() SessionConfig
	Workflow() WorkflowConfig
	Batch() BatchConfig
	Diagnostics() DiagnosticsConfig
	Humanoid() HumanoidConfig

	// CLI overrides
	SetBrowserHeadless(bool)
	SetInterSendDelayMs(int)
	SetLoginTimeout(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	SessionCfg     SessionConfig     `mapstructure:"session" yaml:"session"`
	WorkflowCfg    WorkflowConfig    `mapstructure:"workflow" yaml:"workflow"`
	BatchCfg       BatchConfig       `mapstructure:"batch" yaml:"batch"`
	DiagnosticsCfg DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	HumanoidCfg    HumanoidConfig    `mapstructure:"humanoid" yaml:"humanoid"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Session() SessionConfig         { return c.SessionCfg }
func (c *Config) Workflow() WorkflowConfig       { return c.WorkflowCfg }
func (c *Config) Batch() BatchConfig             { return c.BatchCfg }
func (c *Config) Diagnostics() DiagnosticsConfig { return c.DiagnosticsCfg }
func (c *Config) Humanoid() HumanoidConfig       { return c.HumanoidCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetInterSendDelayMs(ms int)      { c.BatchCfg.InterSendDelayMs = ms }
func (c *Config) SetLoginTimeout(d time.Duration) { c.SessionCfg.LoginTimeout = d }

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
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium process driving the web client.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath     string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir  string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	DisableGPU   bool          `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args         []string      `mapstructure:"args" yaml:"args"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	Persona      PersonaConfig `mapstructure:"persona" yaml:"persona"`
}

// PersonaConfig is the desktop identity presented to the web client.
type PersonaConfig struct {
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string   `mapstructure:"platform" yaml:"platform"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Locale    string   `mapstructure:"locale" yaml:"locale"`
	Timezone  string   `mapstructure:"timezone" yaml:"timezone"`
}

// SessionConfig tunes the login handshake and navigation.
type SessionConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	LoginTimeout      time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// WorkflowConfig holds the bounded waits of the per-recipient send workflow.
type WorkflowConfig struct {
	ReadyTimeout         time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	AttachMenuTimeout    time.Duration `mapstructure:"attach_menu_timeout" yaml:"attach_menu_timeout"`
	MediaEditorTimeout   time.Duration `mapstructure:"media_editor_timeout" yaml:"media_editor_timeout"`
	TextConfirmTimeout   time.Duration `mapstructure:"text_confirm_timeout" yaml:"text_confirm_timeout"`
	AttachConfirmTimeout time.Duration `mapstructure:"attach_confirm_timeout" yaml:"attach_confirm_timeout"`
	PostSendPause        time.Duration `mapstructure:"post_send_pause" yaml:"post_send_pause"`
	ActionTimeout        time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	TextConfirmation     string        `mapstructure:"text_confirmation" yaml:"text_confirmation"`
}

// BatchConfig configures the dispatch loop.
type BatchConfig struct {
	InterSendDelayMs int `mapstructure:"inter_send_delay_ms" yaml:"inter_send_delay_ms"`
}

// InterSendDelay returns the configured delay as a duration.
func (b BatchConfig) InterSendDelay() time.Duration {
	return time.Duration(b.InterSendDelayMs) * time.Millisecond
}

// DiagnosticsConfig controls failure screenshots.
type DiagnosticsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// HumanoidConfig shapes the keystroke fallback when typing the message by hand.
type HumanoidConfig struct {
	Enabled         bool    `mapstructure:"enabled" yaml:"enabled"`
	KeyHoldMeanMs   float64 `mapstructure:"key_hold_mean_ms" yaml:"key_hold_mean_ms"`
	KeyHoldStdDevMs float64 `mapstructure:"key_hold_stddev_ms" yaml:"key_hold_stddev_ms"`
	WordPauseMs     float64 `mapstructure:"word_pause_ms" yaml:"word_pause_ms"`
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

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courier-cli")
	v.SetDefault("logger.log_file", "courier.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "~/.courier/profile")
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.window_width", 1200)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.persona.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	v.SetDefault("browser.persona.platform", "Win32")
	v.SetDefault("browser.persona.languages", []string{"en-US", "en"})
	v.SetDefault("browser.persona.locale", "")
	v.SetDefault("browser.persona.timezone", "")

	// -- Session --
	v.SetDefault("session.base_url", "https://web.whatsapp.com/")
	v.SetDefault("session.login_timeout", "3m")
	v.SetDefault("session.poll_interval", "300ms")
	v.SetDefault("session.navigation_timeout", "60s")

	// -- Workflow --
	v.SetDefault("workflow.ready_timeout", "20s")
	v.SetDefault("workflow.attach_menu_timeout", "2s")
	v.SetDefault("workflow.media_editor_timeout", "3s")
	v.SetDefault("workflow.text_confirm_timeout", "5s")
	v.SetDefault("workflow.attach_confirm_timeout", "10s")
	v.SetDefault("workflow.post_send_pause", "1500ms")
	v.SetDefault("workflow.action_timeout", "10s")
	v.SetDefault("workflow.text_confirmation", TextConfirmCountOrCleared)

	// -- Batch --
	v.SetDefault("batch.inter_send_delay_ms", DefaultInterSendDelayMs)

	// -- Diagnostics --
	v.SetDefault("diagnostics.enabled", true)
	v.SetDefault("diagnostics.dir", ".")

	// -- Humanoid --
	v.SetDefault("humanoid.enabled", false)
	v.SetDefault("humanoid.key_hold_mean_ms", 55.0)
	v.SetDefault("humanoid.key_hold_stddev_ms", 18.0)
	v.SetDefault("humanoid.word_pause_ms", 90.0)
}

// BindEnv wires COURIER_* environment variables onto the config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	BindEnv(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in filesystem settings.
func (c *Config) expandPaths() error {
	var err error
	if c.BrowserCfg.UserDataDir, err = homedir.Expand(c.BrowserCfg.UserDataDir); err != nil {
		return fmt.Errorf("failed to expand browser.user_data_dir: %w", err)
	}
	if c.DiagnosticsCfg.Dir, err = homedir.Expand(c.DiagnosticsCfg.Dir); err != nil {
		return fmt.Errorf("failed to expand diagnostics.dir: %w", err)
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BatchCfg.Validate(); err != nil {
		return err
	}
	if err := c.SessionCfg.Validate(); err != nil {
		return err
	}
	if err := c.WorkflowCfg.Validate(); err != nil {
		return err
	}
	if c.HumanoidCfg.Enabled && c.HumanoidCfg.KeyHoldMeanMs <= 0 {
		return fmt.Errorf("humanoid.key_hold_mean_ms must be positive when humanoid typing is enabled")
	}
	return nil
}

// Validate checks the inter-send delay bounds.
func (b BatchConfig) Validate() error {
	if b.InterSendDelayMs < MinInterSendDelayMs || b.InterSendDelayMs > MaxInterSendDelayMs {
		return fmt.Errorf("batch.inter_send_delay_ms must be between %d and %d, got %d",
			MinInterSendDelayMs, MaxInterSendDelayMs, b.InterSendDelayMs)
	}
	return nil
}

// Validate checks the session timings.
func (s SessionConfig) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("session.base_url is a required configuration field")
	}
	if s.LoginTimeout <= 0 {
		return fmt.Errorf("session.login_timeout must be a positive duration")
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("session.poll_interval must be a positive duration")
	}
	return nil
}

// Validate checks the workflow timings and the confirmation heuristic.
func (w WorkflowConfig) Validate() error {
	timeouts := map[string]time.Duration{
		"workflow.ready_timeout":          w.ReadyTimeout,
		"workflow.text_confirm_timeout":   w.TextConfirmTimeout,
		"workflow.attach_confirm_timeout": w.AttachConfirmTimeout,
		"workflow.action_timeout":         w.ActionTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	switch w.TextConfirmation {
	case TextConfirmCountOrCleared, TextConfirmCount:
	default:
		return fmt.Errorf("workflow.text_confirmation must be %q or %q, got %q",
			TextConfirmCountOrCleared, TextConfirmCount, w.TextConfirmation)
	}
	return nil
}
