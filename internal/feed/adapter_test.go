package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/spglobal/priceservice/internal/price"
	"github.com/spglobal/priceservice/internal/priceservice"
)

type fakeClient struct {
	connectErr error
	quotes     chan price.Record
	errs       chan error
	closed     chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		quotes: make(chan price.Record, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error { return f.connectErr }
func (f *fakeClient) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}
func (f *fakeClient) Quotes() <-chan price.Record { return f.quotes }
func (f *fakeClient) Errors() <-chan error        { return f.errs }

func quote(t *testing.T, instrumentID string, asOf time.Time) price.Record {
	t.Helper()
	rec, err := price.NewRecord(instrumentID, asOf, nil)
	if err != nil {
		t.Fatalf("price.NewRecord: %v", err)
	}
	return rec
}

func TestAdapter_StagesAndCommitsOnWindow(t *testing.T) {
	svc := priceservice.New()
	fc := newFakeClient()

	a := NewAdapter(AdapterConfig{BatchWindow: 20 * time.Millisecond}, svc, slog.Default())
	a.newClient = func(ClientConfig, *slog.Logger) Client { return fc }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	fc.quotes <- quote(t, "I1", time.Now())

	deadline := time.After(time.Second)
	for {
		if _, ok := svc.GetLatestPrice("I1"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for I1 to commit")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

// TestAdapter_IgnoresDecodeFailuresUpstream exercises that a client
// which never forwards anything on Quotes() (as a real Client does
// for a frame that fails decode/validate) leaves the latest-price
// table empty: the adapter has no visibility into discarded frames,
// by design, since decoding now happens at the client boundary.
func TestAdapter_IgnoresDecodeFailuresUpstream(t *testing.T) {
	svc := priceservice.New()
	fc := newFakeClient()

	a := NewAdapter(AdapterConfig{BatchWindow: 20 * time.Millisecond}, svc, slog.Default())
	a.newClient = func(ClientConfig, *slog.Logger) Client { return fc }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	if got := svc.GetAllLatestPrices(); len(got) != 0 {
		t.Errorf("GetAllLatestPrices() = %v, want empty with no quotes forwarded", got)
	}

	cancel()
	<-done
}
