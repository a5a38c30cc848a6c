// Package price defines the value types shared across the Price Service.
//
// Conventions:
//   - Records are immutable once constructed.
//   - asOf timestamps use time.Time; recency is compared with After/Equal.
//   - Payloads are opaque key-value maps; the service never inspects them.
package price
