package price

import (
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		instrumentID string
		asOf         time.Time
		wantErr      bool
		wantKind     Kind
	}{
		{"valid", "AAPL", now, false, 0},
		{"empty instrument id", "", now, true, InvalidArgument},
		{"zero asOf", "AAPL", time.Time{}, true, InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecord(tt.instrumentID, tt.asOf, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if kind, ok := KindOf(err); !ok || kind != tt.wantKind {
					t.Errorf("KindOf(err) = %v, %v, want %v, true", kind, ok, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.InstrumentID() != tt.instrumentID {
				t.Errorf("InstrumentID() = %q, want %q", r.InstrumentID(), tt.instrumentID)
			}
			if !r.AsOf().Equal(tt.asOf) {
				t.Errorf("AsOf() = %v, want %v", r.AsOf(), tt.asOf)
			}
		})
	}
}

func TestRecord_PayloadIsCopied(t *testing.T) {
	payload := map[string]any{"bid": 1.0}
	r, err := NewRecord("AAPL", time.Now(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload["bid"] = 2.0
	if r.Payload()["bid"] != 1.0 {
		t.Errorf("record payload mutated via caller's map: got %v", r.Payload()["bid"])
	}

	got := r.Payload()
	got["bid"] = 3.0
	if r.Payload()["bid"] != 1.0 {
		t.Errorf("record payload mutated via returned copy: got %v", r.Payload()["bid"])
	}
}

func TestRecord_NewerThan(t *testing.T) {
	t0 := time.Now()
	t1 := t0.Add(time.Second)

	older, _ := NewRecord("AAPL", t0, nil)
	newer, _ := NewRecord("AAPL", t1, nil)
	tie, _ := NewRecord("AAPL", t0, nil)

	if !newer.newerThan(older) {
		t.Error("newer.newerThan(older) = false, want true")
	}
	if older.newerThan(newer) {
		t.Error("older.newerThan(newer) = true, want false")
	}
	if tie.newerThan(older) {
		t.Error("tie.newerThan(older) = true, want false (equal asOf keeps incumbent)")
	}
}
