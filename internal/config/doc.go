// Package config loads and validates a priceserver process's
// configuration: the upstream feed connection, the Postgres audit
// sink, the Redis mirror, and the metrics/http server ports.
//
// Load, LoadWithDefaults, and LoadAndValidate form a three-stage
// pipeline — parse the YAML (after expanding ${VAR} references
// against the process environment), fill in defaults for anything
// left unset, then reject the result if a field the service actually
// needs to start is still missing or out of range. cmd/priceserver
// only ever calls LoadAndValidate; the earlier stages exist so tests
// can exercise parsing and defaulting independently of validation.
package config
