package config

import (
	"fmt"
	"strings"

	"prayerd/internal/prayer"
	"prayerd/internal/provider/aladhan"
	"prayerd/internal/retry"
	"prayerd/internal/schedule"
	"prayerd/internal/storage"
	"prayerd/pkg/logx"
)

// Config is the full daemon configuration. It decodes strictly: unknown
// keys are rejected so typos surface at load time instead of silently
// falling back to defaults.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Storage       *StorageConfig      `json:"storage,omitempty"`
	Provider      ProviderConfig      `json:"provider"`
	Notifications NotificationsConfig `json:"notifications"`
	Telegram      TelegramConfig      `json:"telegram"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./prayerd_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite

	Addr     string `json:"addr,omitempty"` // redis
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// ProviderConfig selects the location and calculation method for the
// prayer-times API.
type ProviderConfig struct {
	BaseURL   string  `json:"base_url,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Method    int     `json:"method,omitempty"`
	Location  string  `json:"location,omitempty"`

	RequestsPerMinute int    `json:"requests_per_minute,omitempty"`
	Timeout           string `json:"timeout,omitempty"`

	// RetryPreset is one of "fast", "standard", "persistent", "patient".
	// Empty means "persistent": the daily refresh should survive a flaky
	// morning network.
	RetryPreset string `json:"retry_preset,omitempty"`
}

// NotificationsConfig controls which notifications get armed.
//
// AtTime is a pointer so an omitted key defaults to true while an
// explicit false disables at-time notifications.
type NotificationsConfig struct {
	Prayers       []string `json:"prayers,omitempty"` // empty means all five
	MinutesBefore int      `json:"minutes_before,omitempty"`
	AtTime        *bool    `json:"at_time,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder
// cannot express.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if _, err := c.RetryOptions(); err != nil {
		return err
	}
	if _, err := c.ProviderConfig(); err != nil {
		return err
	}
	if m := c.Provider.Method; m != 0 && (m < aladhan.MinMethod || m > aladhan.MaxMethod) {
		return fmt.Errorf("provider.method: %d out of range %d..%d", m, aladhan.MinMethod, aladhan.MaxMethod)
	}
	if _, err := c.StorageConfig(); err != nil {
		return err
	}
	for _, name := range c.Notifications.Prayers {
		if !isPrayerName(name) {
			return fmt.Errorf("notifications.prayers: unknown prayer %q", name)
		}
	}
	return nil
}

func isPrayerName(name string) bool {
	for _, n := range prayer.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// RetryOptions maps the provider.retry_preset string to retry options.
func (c *Config) RetryOptions() (retry.Options, error) {
	switch strings.ToLower(strings.TrimSpace(c.Provider.RetryPreset)) {
	case "fast":
		return retry.Fast(), nil
	case "standard":
		return retry.Standard(), nil
	case "", "persistent":
		return retry.Persistent(), nil
	case "patient":
		return retry.Patient(), nil
	}
	return retry.Options{}, fmt.Errorf("provider.retry_preset: unknown preset %q", c.Provider.RetryPreset)
}

// LogxConfig maps the logging section to the logger's config.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

// StorageConfig maps the storage section to the storage layer's config.
// A missing section disables persistence.
func (c *Config) StorageConfig() (storage.Config, error) {
	if c.Storage == nil {
		return storage.Config{}, nil
	}
	busy, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
		Addr:        c.Storage.Addr,
		Username:    c.Storage.Username,
		Password:    c.Storage.Password,
		DB:          c.Storage.DB,
	}, nil
}

// ProviderConfig maps the provider section to the Al Adhan client's config.
func (c *Config) ProviderConfig() (aladhan.Config, error) {
	timeout, err := ParseDurationField("provider.timeout", c.Provider.Timeout)
	if err != nil {
		return aladhan.Config{}, err
	}
	ropts, err := c.RetryOptions()
	if err != nil {
		return aladhan.Config{}, err
	}
	return aladhan.Config{
		BaseURL:           c.Provider.BaseURL,
		Latitude:          c.Provider.Latitude,
		Longitude:         c.Provider.Longitude,
		Method:            c.Provider.Method,
		Location:          c.Provider.Location,
		RequestsPerMinute: c.Provider.RequestsPerMinute,
		Timeout:           timeout,
		Retry:             ropts,
	}, nil
}

// ScheduleOptions maps the notifications section to scheduler options.
func (c *Config) ScheduleOptions() schedule.Options {
	return schedule.Options{
		Prayers:       c.Notifications.Prayers,
		MinutesBefore: c.Notifications.MinutesBefore,
		AtTime:        c.Notifications.AtTime,
	}
}
