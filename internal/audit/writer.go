package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spglobal/priceservice/internal/priceservice"
)

// WriterConfig configures the batching behavior of a Writer.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// row is one audited instrument update.
type row struct {
	BatchID      string
	InstrumentID string
	AsOf         time.Time
	CommittedAt  time.Time
}

// WriterMetrics tracks what a Writer has done since it started.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Writer consumes priceservice.CommitEvents and appends one audit row
// per committed instrument.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	events <-chan priceservice.CommitEvent
	db     *pgxpool.Pool

	batch       []row
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics   WriterMetrics
	metricsMu sync.Mutex
}

// NewWriter creates a Writer that reads from svc's commit channel.
func NewWriter(cfg WriterConfig, svc *priceservice.Service, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		events: svc.Subscribe(),
		db:     db,
		batch:  make([]row, 0, cfg.BatchSize),
	}
}

// Start begins consuming commit events and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("audit writer started", "batch_size", w.cfg.BatchSize, "flush_interval", w.cfg.FlushInterval)
	return nil
}

// Stop gracefully shuts down the writer, flushing whatever remains
// batched.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping audit writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("audit writer stopped")
	case <-ctx.Done():
		w.logger.Warn("audit writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		}
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *Writer) handleEvent(ev priceservice.CommitEvent) {
	committedAt := time.Now()

	w.batchMu.Lock()
	for instrumentID, rec := range ev.Committed {
		w.batch = append(w.batch, row{
			BatchID:      string(ev.BatchID),
			InstrumentID: instrumentID,
			AsOf:         rec.AsOf(),
			CommittedAt:  committedAt,
		})
	}
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	rows := w.batch
	w.batch = make([]row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(rows)
	if err != nil {
		w.logger.Error("audit batch insert failed", "error", err, "count", len(rows))
		w.metricsMu.Lock()
		w.metrics.Errors++
		w.metricsMu.Unlock()
		return
	}

	w.metricsMu.Lock()
	w.metrics.Inserts += int64(len(rows) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.metricsMu.Unlock()

	w.logger.Debug("flushed audit rows", "count", len(rows), "conflicts", conflicts, "duration", time.Since(start))
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO
// NOTHING, since a reconnecting feed adapter may redeliver a quote
// that already committed.
func (w *Writer) batchInsert(rows []row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO price_commits (batch_id, instrument_id, as_of, committed_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (instrument_id, as_of) DO NOTHING
		`, r.BatchID, r.InstrumentID, r.AsOf, r.CommittedAt)
	}

	// Stop cancels w.ctx before its final flush, so the insert runs on a
	// context detached from that cancellation.
	results := w.db.SendBatch(context.WithoutCancel(w.ctx), batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
