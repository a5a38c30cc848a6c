package config

import "time"

// ServiceConfig is the root configuration for a priceserver instance.
type ServiceConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Audit    AuditConfig    `yaml:"audit"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// InstanceConfig identifies this priceserver process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds upstream quote-stream connection settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// AuditConfig holds the Postgres audit-trail sink settings.
type AuditConfig struct {
	Postgres      DBConfig      `yaml:"postgres"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MirrorConfig holds the Redis read-replica export settings.
type MirrorConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	KeyPrefix  string        `yaml:"key_prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// MetricsConfig holds Prometheus metrics server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// HTTPConfig holds the query and bulk-ingest HTTP server's settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}
