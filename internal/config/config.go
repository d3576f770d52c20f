package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileEnv names the environment variable pointing at an optional config file.
const FileEnv = "TASKFLOW_CONFIG"

const (
	DispatcherMemory = "memory"
	DispatcherDapr   = "dapr"
)

// Config keeps runtime settings for the service.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr" validate:"required"`
	DatabaseURL string `mapstructure:"database_url" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Timezone    string `mapstructure:"timezone" validate:"required"`

	ScanEnabled     bool          `mapstructure:"scan_enabled"`
	ScanSchedule    string        `mapstructure:"scan_schedule" validate:"required_if=ScanEnabled true"`
	ScanTimeout     time.Duration `mapstructure:"scan_timeout" validate:"gt=0"`
	ScanConcurrency int           `mapstructure:"scan_concurrency" validate:"min=1,max=64"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout" validate:"gt=0"`

	Dispatcher         string `mapstructure:"dispatcher" validate:"oneof=memory dapr"`
	DaprHost           string `mapstructure:"dapr_host" validate:"required_if=Dispatcher dapr"`
	DaprHTTPPort       int    `mapstructure:"dapr_http_port" validate:"gt=0,lt=65536"`
	PubsubName         string `mapstructure:"pubsub_name" validate:"required"`
	NotificationsTopic string `mapstructure:"notifications_topic" validate:"required"`
	TaskEventsTopic    string `mapstructure:"task_events_topic" validate:"required"`
	FeedCapacity       int    `mapstructure:"feed_capacity" validate:"min=1"`

	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	// Location is resolved from Timezone.
	Location *time.Location `mapstructure:"-"`
}

var defaults = map[string]any{
	"http_addr":           ":8080",
	"database_url":        "taskflow.db",
	"log_level":           "info",
	"timezone":            "Local",
	"scan_enabled":        true,
	"scan_schedule":       "@every 5m",
	"scan_timeout":        time.Minute,
	"scan_concurrency":    1,
	"publish_timeout":     2 * time.Second,
	"dispatcher":          DispatcherMemory,
	"dapr_host":           "localhost",
	"dapr_http_port":      3500,
	"pubsub_name":         "todo-pubsub",
	"notifications_topic": "notifications",
	"task_events_topic":   "task-events",
	"feed_capacity":       100,
	"telegram_token":      "",
	"telegram_chat_id":    0,
}

// Load reads configuration from environment variables, on top of the file
// named by TASKFLOW_CONFIG when it is set. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString(FileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Dispatcher = strings.ToLower(strings.TrimSpace(cfg.Dispatcher))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return &cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
