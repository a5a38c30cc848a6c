package mirror

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spglobal/priceservice/internal/price"
	"github.com/spglobal/priceservice/internal/priceservice"
)

type fakePipeliner struct {
	sets    map[string][]byte
	execErr error
}

func newFakePipeliner() *fakePipeliner {
	return &fakePipeliner{sets: make(map[string][]byte)}
}

func (f *fakePipeliner) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if b, ok := value.([]byte); ok {
		f.sets[key] = b
	}
	return redis.NewStatusCmd(ctx)
}

func (f *fakePipeliner) Exec(ctx context.Context) ([]redis.Cmder, error) {
	return nil, f.execErr
}

func TestWriter_Mirror_SetsOneKeyPerInstrument(t *testing.T) {
	svc := priceservice.New()
	w := NewWriter(nil, "price:latest:", svc, nil)

	fp := newFakePipeliner()
	w.pipeline = func() pipeliner { return fp }

	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := price.NewRecord("I1", asOf, map[string]any{"bid": 1.5})
	if err != nil {
		t.Fatalf("price.NewRecord: %v", err)
	}

	if err := w.mirror(context.Background(), priceservice.CommitEvent{
		BatchID:   "b1",
		Committed: map[string]price.Record{"I1": rec},
	}); err != nil {
		t.Fatalf("mirror: %v", err)
	}

	data, ok := fp.sets["price:latest:I1"]
	if !ok {
		t.Fatal("expected a SET for price:latest:I1")
	}

	var got mirroredPrice
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal mirrored price: %v", err)
	}
	if got.InstrumentID != "I1" {
		t.Errorf("InstrumentID = %q, want I1", got.InstrumentID)
	}
	if !got.AsOf.Equal(asOf) {
		t.Errorf("AsOf = %v, want %v", got.AsOf, asOf)
	}
}

func TestWriter_Mirror_EmptyCommitIsNoop(t *testing.T) {
	svc := priceservice.New()
	w := NewWriter(nil, "", svc, nil)

	fp := newFakePipeliner()
	w.pipeline = func() pipeliner { return fp }

	if err := w.mirror(context.Background(), priceservice.CommitEvent{BatchID: "b1"}); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if len(fp.sets) != 0 {
		t.Errorf("sets = %v, want none for an empty commit", fp.sets)
	}
}

func TestWriter_Run_ConsumesCommits(t *testing.T) {
	svc := priceservice.New()
	w := NewWriter(nil, "", svc, nil)

	fp := newFakePipeliner()
	w.pipeline = func() pipeliner { return fp }

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	b, err := svc.StartBatch()
	if err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	rec, err := price.NewRecord("I1", time.Now(), nil)
	if err != nil {
		t.Fatalf("price.NewRecord: %v", err)
	}
	if err := svc.UploadPrice(b, rec); err != nil {
		t.Fatalf("UploadPrice: %v", err)
	}
	if err := svc.CompleteBatch(b); err != nil {
		t.Fatalf("CompleteBatch: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if _, ok := fp.sets[DefaultKeyPrefix+"I1"]; ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for mirrored key")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-w.Done()
}
