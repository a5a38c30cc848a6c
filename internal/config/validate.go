package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServiceConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}

	if err := c.Audit.Postgres.validate("audit.postgres"); err != nil {
		return err
	}
	if c.Audit.BatchSize < 1 {
		return errors.New("audit.batch_size must be >= 1")
	}
	if c.Audit.BufferSize < 1 {
		return errors.New("audit.buffer_size must be >= 1")
	}

	if c.Mirror.Addr == "" {
		return errors.New("mirror.addr is required")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	return nil
}

// validate checks db against what pgxpool needs to open the audit
// sink's connection pool: a reachable host/port, a named database and
// credentials, a recognized sslmode, and a sane pool size. prefix
// identifies the config path in error messages (e.g. "audit.postgres").
func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, db.Port)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	switch db.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("%s.ssl_mode %q is not a recognized postgres sslmode", prefix, db.SSLMode)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed %s.max_conns (%d)", prefix, db.MinConns, prefix, db.MaxConns)
	}
	return nil
}
