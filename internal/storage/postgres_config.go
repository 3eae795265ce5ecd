package storage

import "time"

// PostgresConfig carries the DSN plus pool tuning knobs for the Postgres
// repository. Zero values defer to pgxpool defaults.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	AcquireTimeout      time.Duration
	ApplicationName     string
}
