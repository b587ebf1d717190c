package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// SchedulerConfig holds snapshot daemon settings
type SchedulerConfig struct {
	// SnapshotInterval overrides the UTC-midnight alignment when set to a
	// non-zero value. Used for development and tests; production leaves it
	// at zero and snapshots fire once per day at 00:00 UTC.
	SnapshotInterval time.Duration
	ShutdownTimeout  time.Duration
}

// SeedUser is one entry of the users.yaml seed file consumed by cmd/setup.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Balance  string `yaml:"balance"`
}
