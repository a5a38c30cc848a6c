package price

import "time"

// BatchID uniquely identifies a batch. Equality is string equality.
type BatchID string

// Record is an immutable observation of one instrument's price at a
// point in time. Fields are set at construction and never mutated.
type Record struct {
	instrumentID string
	asOf         time.Time
	payload      map[string]any
}

// NewRecord constructs a Record. It fails with InvalidArgument if
// instrumentID is empty or asOf is the zero time.
func NewRecord(instrumentID string, asOf time.Time, payload map[string]any) (Record, error) {
	if instrumentID == "" {
		return Record{}, Errorf(InvalidArgument, "instrument id is required")
	}
	if asOf.IsZero() {
		return Record{}, Errorf(InvalidArgument, "asOf timestamp is required")
	}

	cp := make(map[string]any, len(payload))
	for k, v := range payload {
		cp[k] = v
	}

	return Record{instrumentID: instrumentID, asOf: asOf, payload: cp}, nil
}

// InstrumentID returns the instrument this record describes.
func (r Record) InstrumentID() string {
	return r.instrumentID
}

// AsOf returns the record's effective timestamp.
func (r Record) AsOf() time.Time {
	return r.asOf
}

// Payload returns a copy of the record's opaque payload.
func (r Record) Payload() map[string]any {
	cp := make(map[string]any, len(r.payload))
	for k, v := range r.payload {
		cp[k] = v
	}
	return cp
}

// newerThan reports whether r should replace existing under the
// latest-as-of-wins rule: strictly later asOf wins, ties keep the
// incumbent (existing).
func (r Record) newerThan(existing Record) bool {
	return r.asOf.After(existing.asOf)
}

// NewerThan is the exported form of newerThan for use outside this package.
func (r Record) NewerThan(existing Record) bool {
	return r.newerThan(existing)
}
