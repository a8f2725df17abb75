// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "redcollect", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.ElementWait)
	assert.Equal(t, 40*time.Second, cfg.Timeouts.PopupCheck)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.RetryInterval)
	assert.Equal(t, "valores_sites.json", cfg.Store.Path)
	assert.Equal(t, "America/Sao_Paulo", cfg.Schedule.Timezone)
	assert.Len(t, cfg.Schedule.Times, 12)

	// Popup registration order must survive the defaults round trip.
	require.Len(t, cfg.Popups, 4)
	assert.Equal(t, "Standard popup", cfg.Popups[0].Label)
	assert.Equal(t, "Inline flex popup", cfg.Popups[3].Label)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		err := cfg.Validate()
		assert.NoError(t, err, "A valid config should not produce a validation error")

		cfgBadWait := *cfg
		cfgBadWait.Timeouts.ElementWait = 0
		err = cfgBadWait.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "timeouts.element_wait")

		cfgBadPattern := *cfg
		cfgBadPattern.Selector.LoginButtonClass = `_btn_[`
		err = cfgBadPattern.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "login_button_class")

		cfgBadSite := *cfg
		cfgBadSite.Sites = []SiteConfig{{URL: ""}}
		err = cfgBadSite.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sites[0].url")
	})

	t.Run("Schedule Validation", func(t *testing.T) {
		sched := ScheduleConfig{Times: []string{"08:20", "22:05"}, Timezone: "America/Sao_Paulo"}
		assert.NoError(t, sched.Validate())

		sched.Times = []string{"25:00"}
		err := sched.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "HH:MM")

		sched.Times = []string{"08:20"}
		sched.Timezone = "Mars/Olympus_Mons"
		err = sched.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown timezone")
	})
}

// -- File Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
sites:
  - url: "https://example.test/lobby"
    username: "user1"
timeouts:
  element_wait: 5s
popups:
  - selector: ".close-a"
    label: "First popup"
  - selector: "//span[text()='Fechar']"
    label: "Second popup"
telegram:
  enabled: false
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeouts.ElementWait)
	// Unset values fall back to defaults.
	assert.Equal(t, 40*time.Second, cfg.Timeouts.PopupCheck)

	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "https://example.test/lobby", cfg.Sites[0].URL)

	// Configured popups replace the default table, keeping file order.
	require.Len(t, cfg.Popups, 2)
	assert.Equal(t, "First popup", cfg.Popups[0].Label)
	assert.Equal(t, "//span[text()='Fechar']", cfg.Popups[1].Selector)

	assert.False(t, cfg.Telegram.Enabled)
}

func TestTelegramTokenFromEnv(t *testing.T) {
	t.Setenv("REDCOLLECT_TELEGRAM_TOKEN", "123456:token-from-env")

	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "123456:token-from-env", cfg.Telegram.BotToken)
}
