package priceservice

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spglobal/priceservice/internal/batch"
	"github.com/spglobal/priceservice/internal/price"
)

// Observer receives batch lifecycle notifications for metrics
// collection. Implementations must not block or call back into the
// Service. A nil Observer (the default) is a no-op.
type Observer interface {
	BatchStarted()
	BatchCompleted(staged, committed, latestTableSize int, d time.Duration)
	BatchCancelled()
}

type noopObserver struct{}

func (noopObserver) BatchStarted() {}
func (noopObserver) BatchCompleted(staged, committed, latestTableSize int, d time.Duration) {
}
func (noopObserver) BatchCancelled() {}

// commitBufferSize is the capacity of the commit-event channel
// returned by Subscribe.
const commitBufferSize = 1000

// CommitEvent describes one completed batch's effect on the
// latest-price table: the subset of its staged instruments that
// actually won (strictly newer asOf, or no prior entry). Consumers
// (internal/audit, internal/mirror) use this to mirror commits
// without reaching into the service's internal state.
type CommitEvent struct {
	BatchID   price.BatchID
	Committed map[string]price.Record
}

// Service is the price service coordinator: it owns the batch set and
// the latest-price table, and mediates every transition between them.
type Service struct {
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	batches map[price.BatchID]*batch.Batch
	latest  map[string]price.Record

	commits chan CommitEvent
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver attaches an Observer notified of batch lifecycle
// transitions, typically internal/metrics.Metrics.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// New constructs an empty Service with no active batches and an
// empty latest-price table.
func New(opts ...Option) *Service {
	s := &Service{
		logger:   slog.Default(),
		observer: noopObserver{},
		batches:  make(map[price.BatchID]*batch.Batch),
		latest:   make(map[string]price.Record),
		commits:  make(chan CommitEvent, commitBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel of CommitEvents, one per successful
// CompleteBatch call. Sends are non-blocking: if a slow consumer lets
// the buffer fill, the oldest pending event is dropped to make room.
func (s *Service) Subscribe() <-chan CommitEvent {
	return s.commits
}

// StartBatch creates a new Active batch and returns its id.
func (s *Service) StartBatch() (price.BatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := price.BatchID(uuid.New().String())
	if _, exists := s.batches[id]; exists {
		return "", price.Errorf(price.IllegalState, "batch id %s collided", id)
	}

	s.batches[id] = batch.New(id)
	s.observer.BatchStarted()
	return id, nil
}

// UploadPrice stages rec into batchId under the latest-as-of-wins
// rule. The service lock is held in shared mode for the duration of
// the stage, not just the lookup: this is what makes CompleteBatch's
// exclusive-mode drain see a quiescent batch rather than racing a
// Stage call that started before the drain but finishes after it.
func (s *Service) UploadPrice(batchId price.BatchID, rec price.Record) error {
	if batchId == "" {
		return price.Errorf(price.InvalidArgument, "batch id is required")
	}
	if rec.InstrumentID() == "" {
		return price.Errorf(price.InvalidArgument, "price is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchId]
	if !ok {
		return price.Errorf(price.IllegalState, "batch %s does not exist", batchId)
	}
	return b.Stage(rec)
}

// UploadPrices uploads each record in order, equivalent to calling
// UploadPrice in a loop. It is not atomic: a mid-list failure leaves
// earlier prices staged in the batch.
func (s *Service) UploadPrices(batchId price.BatchID, records []price.Record) error {
	if records == nil {
		return price.Errorf(price.InvalidArgument, "records list is required")
	}
	for _, rec := range records {
		if err := s.UploadPrice(batchId, rec); err != nil {
			return err
		}
	}
	return nil
}

// CompleteBatch atomically merges batchId's staged prices into the
// latest-price table under the commit rule (strictly newer asOf
// wins, ties keep the existing entry), then transitions the batch to
// Completed. The merge and the transition happen under one exclusive
// lock acquisition, so no reader ever observes a partially-applied
// commit.
func (s *Service) CompleteBatch(batchId price.BatchID) error {
	if batchId == "" {
		return price.Errorf(price.InvalidArgument, "batch id is required")
	}

	start := time.Now()

	s.mu.Lock()
	b, ok := s.batches[batchId]
	if !ok {
		s.mu.Unlock()
		return price.Errorf(price.IllegalState, "batch %s does not exist", batchId)
	}
	if b.State() != batch.Active {
		s.mu.Unlock()
		return price.Errorf(price.IllegalState, "batch %s is not active (state: %s)", batchId, b.State())
	}

	staged := b.Drain()
	committed := make(map[string]price.Record, len(staged))
	for instrumentID, rec := range staged {
		existing, has := s.latest[instrumentID]
		if !has || rec.AsOf().After(existing.AsOf()) {
			s.latest[instrumentID] = rec
			committed[instrumentID] = rec
		}
	}

	if err := b.MarkCompleted(); err != nil {
		s.mu.Unlock()
		return price.Errorf(price.Internal, "batch %s failed to transition to Completed: %v", batchId, err)
	}
	latestTableSize := len(s.latest)
	s.mu.Unlock()

	s.notifyCommit(CommitEvent{BatchID: batchId, Committed: committed})
	s.observer.BatchCompleted(len(staged), len(committed), latestTableSize, time.Since(start))
	s.logger.Debug("batch completed", "batch_id", batchId, "staged", len(staged), "committed", len(committed))
	return nil
}

// CancelBatch discards batchId's staged prices and transitions it to
// Cancelled. The latest-price table is untouched.
func (s *Service) CancelBatch(batchId price.BatchID) error {
	if batchId == "" {
		return price.Errorf(price.InvalidArgument, "batch id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchId]
	if !ok {
		return price.Errorf(price.IllegalState, "batch %s does not exist", batchId)
	}
	if b.State() != batch.Active {
		return price.Errorf(price.IllegalState, "batch %s is not active (state: %s)", batchId, b.State())
	}

	if err := b.MarkCancelled(); err != nil {
		return err
	}
	s.observer.BatchCancelled()
	return nil
}

// GetLatestPrice returns the latest committed price for instrumentID,
// or ok=false if none has ever been committed. An empty instrumentID
// is a valid query that always misses.
func (s *Service) GetLatestPrice(instrumentID string) (price.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.latest[instrumentID]
	return rec, ok
}

// GetLatestPrices returns a read-only snapshot mapping each requested
// instrument id to its latest committed price. Nil/empty ids are
// skipped silently; instruments with no committed price are omitted.
// instrumentIDs == nil is rejected with InvalidArgument; a non-nil
// empty slice returns an empty map.
func (s *Service) GetLatestPrices(instrumentIDs []string) (map[string]price.Record, error) {
	if instrumentIDs == nil {
		return nil, price.Errorf(price.InvalidArgument, "instrument id list is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]price.Record, len(instrumentIDs))
	for _, id := range instrumentIDs {
		if id == "" {
			continue
		}
		if rec, ok := s.latest[id]; ok {
			result[id] = rec
		}
	}
	return result, nil
}

// GetAllLatestPrices returns a read-only snapshot of the entire
// latest-price table.
func (s *Service) GetAllLatestPrices() map[string]price.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]price.Record, len(s.latest))
	for k, v := range s.latest {
		result[k] = v
	}
	return result
}

// Reset drops all batches and clears the latest-price table. Testing
// only: it acquires the exclusive lock, so in-flight operations
// either complete first or, once they re-acquire the lock, find an
// empty service.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches = make(map[price.BatchID]*batch.Batch)
	s.latest = make(map[string]price.Record)
}

// notifyCommit sends ev on the commit channel without blocking,
// dropping the oldest pending event to make room if the buffer is
// full.
func (s *Service) notifyCommit(ev CommitEvent) {
	select {
	case s.commits <- ev:
	default:
		select {
		case <-s.commits:
			select {
			case s.commits <- ev:
			default:
			}
		default:
		}
	}
}
