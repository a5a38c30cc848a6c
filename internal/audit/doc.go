// Package audit writes a durable history of every committed price
// update to Postgres. It subscribes to a priceservice.Service's
// commit events and batches rows for insert on a size-or-ticker
// flush schedule.
//
// The audit trail is append-only and never read back by the
// coordinator: losing it does not affect what GetLatestPrice(s)
// returns, and restarting the service starts the in-memory state
// from empty regardless of what the audit table holds.
package audit
