// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "courier-cli", cfg.Logger().ServiceName)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "https://web.whatsapp.com/", cfg.Session().BaseURL)
	assert.Equal(t, 3*time.Minute, cfg.Session().LoginTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Session().PollInterval)
	assert.Equal(t, 20*time.Second, cfg.Workflow().ReadyTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Workflow().PostSendPause)
	assert.Equal(t, TextConfirmCountOrCleared, cfg.Workflow().TextConfirmation)
	assert.Equal(t, DefaultInterSendDelayMs, cfg.Batch().InterSendDelayMs)
	assert.Equal(t, 1200*time.Millisecond, cfg.Batch().InterSendDelay())
	assert.True(t, cfg.Diagnostics().Enabled)
	assert.Equal(t, []string{"en-US", "en"}, cfg.Browser().Persona.Languages)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Inter-send delay bounds", func(t *testing.T) {
		for _, ms := range []int{MinInterSendDelayMs, 1200, MaxInterSendDelayMs} {
			cfg := NewDefaultConfig()
			cfg.SetInterSendDelayMs(ms)
			assert.NoError(t, cfg.Validate(), "delay %d should be accepted", ms)
		}
		for _, ms := range []int{0, MinInterSendDelayMs - 1, MaxInterSendDelayMs + 1} {
			cfg := NewDefaultConfig()
			cfg.SetInterSendDelayMs(ms)
			err := cfg.Validate()
			require.Error(t, err, "delay %d should be rejected", ms)
			assert.Contains(t, err.Error(), "batch.inter_send_delay_ms must be between 250 and 60000")
		}
	})

	t.Run("Session timings", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetLoginTimeout(0)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session.login_timeout must be a positive duration")

		cfg = NewDefaultConfig()
		cfg.SessionCfg.BaseURL = ""
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session.base_url is a required configuration field")
	})

	t.Run("Workflow heuristic", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.WorkflowCfg.TextConfirmation = TextConfirmCount
		assert.NoError(t, cfg.Validate())

		cfg.WorkflowCfg.TextConfirmation = "telepathy"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workflow.text_confirmation")
	})

	t.Run("Workflow timeouts", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.WorkflowCfg.ReadyTimeout = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workflow.ready_timeout must be a positive duration")
	})

	t.Run("Humanoid", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.HumanoidCfg.Enabled = true
		cfg.HumanoidCfg.KeyHoldMeanMs = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "humanoid.key_hold_mean_ms")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
browser:
  headless: true
  user_data_dir: /tmp/courier-profile
batch:
  inter_send_delay_ms: 2500
workflow:
  text_confirmation: count
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, "/tmp/courier-profile", cfg.Browser().UserDataDir)
		assert.Equal(t, 2500, cfg.Batch().InterSendDelayMs)
		assert.Equal(t, TextConfirmCount, cfg.Workflow().TextConfirmation)
		// Defaults survive alongside the file values.
		assert.Equal(t, "info", cfg.Logger().Level)
		assert.Equal(t, 10*time.Second, cfg.Workflow().AttachConfirmTimeout)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("batch.inter_send_delay_ms", 10)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "batch.inter_send_delay_ms")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString("batch:\n  inter_send_delay_ms: 900\n")))

		t.Setenv("COURIER_BATCH_INTER_SEND_DELAY_MS", "3000")
		t.Setenv("COURIER_BROWSER_HEADLESS", "true")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Batch().InterSendDelayMs, "env must override the config file")
		assert.True(t, cfg.Browser().Headless)
	})

	t.Run("Home expansion", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		home, err := homedir.Dir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".courier", "profile"), cfg.Browser().UserDataDir)
	})
}
