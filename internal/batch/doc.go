// Package batch implements the staging area for a single batch of
// price updates.
//
// A Batch holds a per-instrument latest-staged-price map and a
// lifecycle state (Active, Completed, Cancelled). It is internal to
// internal/priceservice: the coordinator is the only caller and owns
// the reader/writer discipline around batch creation and commit.
// Batch itself only guarantees that concurrent Stage calls against the
// same instance are safe and that terminal states are sticky.
package batch
