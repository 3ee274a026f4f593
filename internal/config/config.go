package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	SRS       SRSConfig       `mapstructure:"srs"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`

	// URL is a PostgreSQL connection string or a SQLite file path / DSN.
	URL string `mapstructure:"url" validate:"required"`

	MaxOpenConns int  `mapstructure:"max_open_conns" validate:"gte=0"`
	AutoMigrate  bool `mapstructure:"auto_migrate"`
}

// SchedulerConfig controls due-card selection and statistics.
type SchedulerConfig struct {
	// Lookahead is added to "now" when selecting due cards.
	Lookahead time.Duration `mapstructure:"lookahead" validate:"gte=0"`

	// Timezone is the IANA zone whose midnight starts "today" for statistics.
	Timezone string `mapstructure:"timezone" validate:"required"`

	// DefaultRetention is used when no settings have been persisted yet.
	DefaultRetention float64 `mapstructure:"default_retention" validate:"gte=0.7,lte=0.97"`
}

// SRSConfig overrides memory model parameters.
type SRSConfig struct {
	// Weights replaces the default weight vector when non-empty.
	Weights []float64 `mapstructure:"weights" validate:"omitempty,len=21"`

	// MinInterval is the shortest allowed gap between review and due.
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=0"`
}

// TaskConfig sizes the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
}

// TelemetryConfig toggles metrics and tracing.
type TelemetryConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	ServiceName    string `mapstructure:"service_name"`
}
