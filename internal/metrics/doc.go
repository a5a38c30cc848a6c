// Package metrics provides Prometheus metrics for monitoring the
// price service.
//
// Key metrics:
//   - Batch lifecycle counts (started, completed, cancelled)
//   - Staged-price and latest-table sizes
//   - CompleteBatch commit latency
package metrics
