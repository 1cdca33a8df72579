package store

import (
	"time"

	"aidetect/internal/platform/config"
)

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures the backend
type Config struct {
	AppName string
	Driver  string

	PG     PGConfig
	SQLite SQLiteConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries uint64
	PingTimeout    time.Duration
}

// SQLiteConfig configures the embedded sqlite file
type SQLiteConfig struct {
	Path string
}

// FromConfig reads the driver from root.Prefix("CORE_FEEDBACK_") and backend settings
// from SERVICE_PGSQL_* and SERVICE_SQLITE_*
func FromConfig(root config.Conf, appName string) Config {
	pg := root.Prefix("SERVICE_PGSQL_")
	lite := root.Prefix("SERVICE_SQLITE_")
	return Config{
		AppName: appName,
		Driver:  root.Prefix("CORE_FEEDBACK_").MayEnum("STORE", DriverMemory, DriverMemory, DriverSQLite, DriverPostgres),
		PG: PGConfig{
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: uint64(pg.MayInt("CONNECT_RETRIES", 6)),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		SQLite: SQLiteConfig{
			Path: lite.MayString("PATH", "aidetect.sqlite"),
		},
	}
}
