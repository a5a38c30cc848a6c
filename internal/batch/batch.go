package batch

import (
	"sync"

	"github.com/spglobal/priceservice/internal/price"
)

// State is the lifecycle state of a Batch.
type State int

const (
	// Active is the initial state; staging is allowed.
	Active State = iota
	// Completed is terminal: the batch's staged prices have been
	// merged into the latest-price table.
	Completed
	// Cancelled is terminal: the batch's staged prices were discarded.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Batch is a producer's staging area for one price.BatchID. It is
// safe for concurrent Stage calls, and its terminal transitions are
// one-shot: MarkCompleted/MarkCancelled fail once the batch has
// already left Active.
type Batch struct {
	id price.BatchID

	mu     sync.Mutex
	state  State
	staged map[string]price.Record
}

// New returns a new Active batch with the given id.
func New(id price.BatchID) *Batch {
	return &Batch{
		id:     id,
		state:  Active,
		staged: make(map[string]price.Record),
	}
}

// ID returns the batch's identifier.
func (b *Batch) ID() price.BatchID {
	return b.id
}

// State returns the batch's current lifecycle state.
func (b *Batch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stage applies the latest-as-of-wins rule for rec within this batch.
// It fails with IllegalState if the batch is not Active. The
// insert-or-replace decision and the map write happen as one
// mutex-guarded read-modify-write, so concurrent Stage calls against
// the same instrument never race.
func (b *Batch) Stage(rec price.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Active {
		return price.Errorf(price.IllegalState, "batch %s is not active (state: %s)", b.id, b.state)
	}

	existing, ok := b.staged[rec.InstrumentID()]
	if !ok || rec.NewerThan(existing) {
		b.staged[rec.InstrumentID()] = rec
	}
	return nil
}

// MarkCompleted transitions the batch to Completed. Fails with
// IllegalState if the batch is not Active.
func (b *Batch) MarkCompleted() error {
	return b.markTerminal(Completed)
}

// MarkCancelled transitions the batch to Cancelled. Fails with
// IllegalState if the batch is not Active.
func (b *Batch) MarkCancelled() error {
	return b.markTerminal(Cancelled)
}

func (b *Batch) markTerminal(to State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Active {
		return price.Errorf(price.IllegalState, "batch %s is not active (state: %s)", b.id, b.state)
	}
	b.state = to
	return nil
}

// Drain returns a snapshot of the staged map. Callers (the
// coordinator) must only call this once, under their own exclusive
// lock, immediately before committing — after a terminal transition
// the staged map is never read again.
func (b *Batch) Drain() map[string]price.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make(map[string]price.Record, len(b.staged))
	for k, v := range b.staged {
		snapshot[k] = v
	}
	return snapshot
}
