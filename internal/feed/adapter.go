package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/spglobal/priceservice/internal/priceservice"
)

// AdapterConfig configures the feed adapter's reconnect and batching
// behavior.
type AdapterConfig struct {
	ClientConfig
	BatchWindow       time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// Adapter drives a priceservice.Service from an upstream quote
// stream: every BatchWindow it opens a batch, stages each incoming
// quote into it, and completes it, so the commit protocol's
// atomicity applies to one window at a time.
type Adapter struct {
	cfg    AdapterConfig
	svc    *priceservice.Service
	logger *slog.Logger

	newClient func(ClientConfig, *slog.Logger) Client
}

// NewAdapter constructs an Adapter bound to svc.
func NewAdapter(cfg AdapterConfig, svc *priceservice.Service, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchWindow == 0 {
		cfg.BatchWindow = time.Second
	}
	return &Adapter{
		cfg:       cfg,
		svc:       svc,
		logger:    logger,
		newClient: NewClient,
	}
}

// Run connects to the upstream feed and drives the service until ctx
// is cancelled, reconnecting with exponential backoff on failure.
func (a *Adapter) Run(ctx context.Context) error {
	wait := a.cfg.ReconnectBaseDelay
	if wait == 0 {
		wait = time.Second
	}
	maxWait := a.cfg.ReconnectMaxDelay
	if maxWait == 0 {
		maxWait = 60 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cli := a.newClient(a.cfg.ClientConfig, a.logger)
		if err := cli.Connect(ctx); err != nil {
			a.logger.Warn("feed connect failed", "error", err)
			if !sleepOrDone(ctx, wait) {
				return ctx.Err()
			}
			wait = nextBackoff(wait, maxWait)
			continue
		}

		wait = a.cfg.ReconnectBaseDelay
		if wait == 0 {
			wait = time.Second
		}

		a.drive(ctx, cli)
		cli.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sleepOrDone(ctx, wait) {
			return ctx.Err()
		}
		wait = nextBackoff(wait, maxWait)
	}
}

// drive stages incoming quotes into rolling batches until the client
// disconnects or ctx is cancelled.
func (a *Adapter) drive(ctx context.Context, cli Client) {
	batchID, err := a.svc.StartBatch()
	if err != nil {
		a.logger.Error("start batch failed", "error", err)
		return
	}

	ticker := time.NewTicker(a.cfg.BatchWindow)
	defer ticker.Stop()

	rotate := func() {
		if err := a.svc.CompleteBatch(batchID); err != nil {
			a.logger.Warn("complete batch failed", "batch_id", batchID, "error", err)
		}
		next, err := a.svc.StartBatch()
		if err != nil {
			a.logger.Error("start batch failed", "error", err)
			return
		}
		batchID = next
	}

	for {
		select {
		case <-ctx.Done():
			a.svc.CancelBatch(batchID)
			return
		case err := <-cli.Errors():
			a.logger.Warn("feed connection error", "error", err)
			a.svc.CancelBatch(batchID)
			return
		case <-ticker.C:
			rotate()
		case rec, ok := <-cli.Quotes():
			if !ok {
				a.svc.CancelBatch(batchID)
				return
			}
			if err := a.svc.UploadPrice(batchID, rec); err != nil {
				a.logger.Warn("upload price failed", "batch_id", batchID, "error", err)
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(wait, max time.Duration) time.Duration {
	wait *= 2
	if wait > max {
		wait = max
	}
	return wait
}
