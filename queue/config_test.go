package queue

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Namespace != "apalis" {
		t.Errorf("expected default namespace apalis, got %s", cfg.Namespace)
	}
	if cfg.MaxDeliver != 5 {
		t.Errorf("expected default max_deliver 5, got %d", cfg.MaxDeliver)
	}
	if cfg.AckWait != 30*time.Second {
		t.Errorf("expected default ack_wait 30s, got %v", cfg.AckWait)
	}
	if cfg.NumReplicas != 1 {
		t.Errorf("expected default num_replicas 1, got %d", cfg.NumReplicas)
	}
	if !cfg.EnableDLQ {
		t.Error("expected DLQ enabled by default")
	}
	if cfg.MaxAckPending != 100 {
		t.Errorf("expected default max_ack_pending 100, got %d", cfg.MaxAckPending)
	}
	if !cfg.EnableTracing {
		t.Error("expected tracing enabled by default")
	}
}

func TestConfigBackoffFor(t *testing.T) {
	cfg := &Config{NakBackoff: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 500 * time.Millisecond},
		{attempt: 10, want: 500 * time.Millisecond}, // clamps to last entry
		{attempt: 0, want: 100 * time.Millisecond},  // clamps to first entry
	}

	for _, c := range cases {
		if got := cfg.backoffFor(c.attempt); got != c.want {
			t.Errorf("backoffFor(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestConfigBackoffForEmpty(t *testing.T) {
	cfg := &Config{}
	if got := cfg.backoffFor(1); got != 0 {
		t.Errorf("expected zero backoff with no nak_backoff configured, got %v", got)
	}
}

func TestParseDurationList(t *testing.T) {
	got := parseDurationList("1s, 5s,15s")
	want := []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("expected %d durations, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseDurationListSkipsInvalid(t *testing.T) {
	got := parseDurationList("1s,not-a-duration,5s")
	if len(got) != 2 {
		t.Fatalf("expected invalid entries to be skipped, got %d entries", len(got))
	}
}
