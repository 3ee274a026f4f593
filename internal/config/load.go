package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. REVISE_SERVER_PORT.
const EnvPrefix = "REVISE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile behaves like Load but reads the given config file instead of
// searching for config.yaml. An empty path falls back to the search.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: scheduler.timezone: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "revision.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("scheduler.lookahead", 10*time.Minute)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.default_retention", 0.9)

	v.SetDefault("srs.min_interval", 5*time.Minute)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)

	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.service_name", "revision-scheduler")
}

// bindEnvs makes every known key visible to Unmarshal even when it is only
// set through the environment.
func bindEnvs(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}
}
