package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spglobal/priceservice/internal/price"
	"github.com/spglobal/priceservice/internal/priceservice"
)

// DefaultKeyPrefix is used when NewWriter is given an empty prefix.
const DefaultKeyPrefix = "price:latest:"

// pipeliner is the subset of redis.Pipeliner a Writer needs, narrowed
// so tests can substitute a fake.
type pipeliner interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exec(ctx context.Context) ([]redis.Cmder, error)
}

// Writer mirrors every CommitEvent it receives into Redis as one SET
// per committed instrument, pipelined for a single round trip per
// batch.
type Writer struct {
	pipeline  func() pipeliner
	keyPrefix string
	logger    *slog.Logger

	events <-chan priceservice.CommitEvent
	done   chan struct{}
}

// NewWriter creates a Writer that mirrors svc's commits into redis
// under keyPrefix+instrumentID.
func NewWriter(redisClient *redis.Client, keyPrefix string, svc *priceservice.Service, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Writer{
		pipeline:  func() pipeliner { return redisClient.Pipeline() },
		keyPrefix: keyPrefix,
		logger:    logger,
		events:    svc.Subscribe(),
		done:      make(chan struct{}),
	}
}

// Run consumes commit events until ctx is cancelled.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			if err := w.mirror(ctx, ev); err != nil {
				w.logger.Warn("mirror commit failed", "batch_id", ev.BatchID, "error", err)
			}
		}
	}
}

// Done returns a channel that closes once Run has returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

type mirroredPrice struct {
	InstrumentID string         `json:"instrument_id"`
	AsOf         time.Time      `json:"as_of"`
	Payload      map[string]any `json:"payload"`
}

func (w *Writer) mirror(ctx context.Context, ev priceservice.CommitEvent) error {
	if len(ev.Committed) == 0 {
		return nil
	}

	pipe := w.pipeline()
	for instrumentID, rec := range ev.Committed {
		data, err := json.Marshal(toMirroredPrice(rec))
		if err != nil {
			w.logger.Warn("marshal mirrored price failed", "instrument_id", instrumentID, "error", err)
			continue
		}
		pipe.Set(ctx, w.keyPrefix+instrumentID, data, 0)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func toMirroredPrice(rec price.Record) mirroredPrice {
	return mirroredPrice{
		InstrumentID: rec.InstrumentID(),
		AsOf:         rec.AsOf(),
		Payload:      rec.Payload(),
	}
}
