// Package priceservice implements the price service coordinator: the
// batch lifecycle state machine, the staging-to-visible commit
// protocol, and the concurrency discipline guaranteeing batch
// atomicity and isolation.
//
// Producers stage prices into batches (StartBatch, UploadPrice); a
// batch is invisible to readers until CompleteBatch atomically merges
// it into the latest-price table. Readers query GetLatestPrice(s) at
// any time and only ever observe completed batches.
//
// The service's batch set and latest-price table are jointly guarded
// by one sync.RWMutex: exclusive mode for StartBatch, CompleteBatch,
// CancelBatch, Reset; shared mode for UploadPrice and the read
// operations.
package priceservice
