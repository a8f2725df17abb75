// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Sites    []SiteConfig   `mapstructure:"sites" yaml:"sites"`
	Selector SelectorConfig `mapstructure:"selectors" yaml:"selectors"`
	Popups   []PopupConfig  `mapstructure:"popups" yaml:"popups"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
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
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless      bool     `mapstructure:"headless" yaml:"headless"`
	DisableGPU    bool     `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	NoSandbox     bool     `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	DisableDevShm bool     `mapstructure:"disable_dev_shm" yaml:"disable_dev_shm"`
	Args          []string `mapstructure:"args" yaml:"args"`
}

// TimeoutConfig tunes every bounded wait in the interaction layer.
type TimeoutConfig struct {
	PageLoad      time.Duration `mapstructure:"page_load" yaml:"page_load"`
	ElementWait   time.Duration `mapstructure:"element_wait" yaml:"element_wait"`
	PopupCheck    time.Duration `mapstructure:"popup_check" yaml:"popup_check"`
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`
}

// SiteConfig describes one target site and its credentials.
type SiteConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
}

// SelectorConfig names the page controls the workflow drives.
// Selectors beginning with "//" are treated as XPath, everything else as CSS.
type SelectorConfig struct {
	LoginButton      string `mapstructure:"login_button" yaml:"login_button"`
	LoginButtonClass string `mapstructure:"login_button_class" yaml:"login_button_class"`
	UsernameField    string `mapstructure:"username_field" yaml:"username_field"`
	PasswordField    string `mapstructure:"password_field" yaml:"password_field"`
	SubmitButton     string `mapstructure:"submit_button" yaml:"submit_button"`
	MainButton       string `mapstructure:"main_button" yaml:"main_button"`
	CurrencyValue    string `mapstructure:"currency_value" yaml:"currency_value"`
	PrizeValue       string `mapstructure:"prize_value" yaml:"prize_value"`
	PopupBlock       string `mapstructure:"popup_block" yaml:"popup_block"`
}

// PopupConfig registers one known popup dismiss control.
// Entries are scanned in the order they appear in the configuration.
type PopupConfig struct {
	Selector string `mapstructure:"selector" yaml:"selector"`
	Label    string `mapstructure:"label" yaml:"label"`
}

// TelegramConfig holds the delivery settings for the report channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	BotToken string `mapstructure:"bot_token" yaml:"-"`
	ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
}

// StoreConfig locates the value-history file.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ScheduleConfig drives the watch command.
type ScheduleConfig struct {
	Times    []string `mapstructure:"times" yaml:"times"`
	Timezone string   `mapstructure:"timezone" yaml:"timezone"`
	// StartupWindow is how far past a scheduled time a fresh launch still
	// triggers an immediate run.
	StartupWindow time.Duration `mapstructure:"startup_window" yaml:"startup_window"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "redcollect")
	v.SetDefault("logger.log_file", "redcollect.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.disable_dev_shm", false)

	// -- Timeouts --
	v.SetDefault("timeouts.page_load", "30s")
	v.SetDefault("timeouts.element_wait", "10s")
	v.SetDefault("timeouts.popup_check", "40s")
	v.SetDefault("timeouts.retry_interval", "2s")

	// -- Selectors --
	v.SetDefault("selectors.login_button", "div[class*='lobby-image']")
	v.SetDefault("selectors.login_button_class", `_btn_\w+_43`)
	v.SetDefault("selectors.username_field", "input[data-input-name='account']")
	v.SetDefault("selectors.password_field", "input[data-input-name='userpass']")
	v.SetDefault("selectors.submit_button",
		"div.ui-badge__wrapper button.ui-button.ui-button--primary.ui-button--normal.ui-button--block")
	v.SetDefault("selectors.main_button", "div.redpocket-collet-normal")
	v.SetDefault("selectors.currency_value", "//*[starts-with(@class, '_currency-count_')]")
	v.SetDefault("selectors.prize_value", "div._pocket_r2902_51 div.prize span")
	v.SetDefault("selectors.popup_block",
		"div.ui-popup.ui-popup--center.safe-area-top.safe-area-bottom.ui-dialog")

	// -- Popups --
	v.SetDefault("popups", []map[string]string{
		{"selector": "i.ui-dialog-close-box__icon", "label": "Standard popup"},
		{"selector": "i.ui-dialog-close-box__icon svg", "label": "SVG popup"},
		{"selector": "//div[@class='ui-button__content']//span[text()='Cancelar']", "label": "Cancel button popup"},
		{"selector": "i.ui-dialog-close-box__icon[style*='display: inline-flex']", "label": "Inline flex popup"},
	})

	// -- Telegram --
	v.SetDefault("telegram.enabled", true)

	// -- Store --
	v.SetDefault("store.path", "valores_sites.json")

	// -- Schedule --
	v.SetDefault("schedule.times", []string{
		"00:20", "02:20", "04:20", "06:20", "08:20", "10:20",
		"12:20", "14:20", "16:20", "18:20", "20:20", "22:20",
	})
	v.SetDefault("schedule.timezone", "America/Sao_Paulo")
	v.SetDefault("schedule.startup_window", "10m")
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

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("telegram.bot_token", "REDCOLLECT_TELEGRAM_TOKEN")
	v.BindEnv("telegram.chat_id", "REDCOLLECT_TELEGRAM_CHAT_ID")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the token if Unmarshal didn't pick it up.
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = os.Getenv("REDCOLLECT_TELEGRAM_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Timeouts.ElementWait <= 0 {
		return fmt.Errorf("timeouts.element_wait must be a positive duration")
	}
	if c.Timeouts.PopupCheck <= 0 {
		return fmt.Errorf("timeouts.popup_check must be a positive duration")
	}
	if c.Timeouts.RetryInterval <= 0 {
		return fmt.Errorf("timeouts.retry_interval must be a positive duration")
	}
	if c.Selector.LoginButtonClass != "" {
		if _, err := regexp.Compile(c.Selector.LoginButtonClass); err != nil {
			return fmt.Errorf("selectors.login_button_class is not a valid pattern: %w", err)
		}
	}
	for i, p := range c.Popups {
		if p.Selector == "" {
			return fmt.Errorf("popups[%d].selector must not be empty", i)
		}
	}
	for i, s := range c.Sites {
		if s.URL == "" {
			return fmt.Errorf("sites[%d].url must not be empty", i)
		}
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("schedule configuration invalid: %w", err)
	}
	return nil
}

var timeOfDayRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// Validate checks the ScheduleConfig settings.
func (s *ScheduleConfig) Validate() error {
	for _, t := range s.Times {
		if !timeOfDayRe.MatchString(t) {
			return fmt.Errorf("schedule time %q is not in HH:MM form", t)
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}
