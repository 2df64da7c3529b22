package queue

import (
	"encoding/json"
	"testing"
)

type testPayload struct {
	Name string `json:"name"`
}

func TestNewJobAssignsIDAndAttempt(t *testing.T) {
	job := newJob(testPayload{Name: "low-1"})

	if job.ID == "" {
		t.Fatal("expected non-empty job id")
	}
	if job.Attempt != 1 {
		t.Errorf("expected initial attempt 1, got %d", job.Attempt)
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("expected EnqueuedAt to be set")
	}
}

func TestJobIDsAreLexicallySortableByTime(t *testing.T) {
	a := newJobID()
	b := newJobID()
	if a == b {
		t.Fatal("expected distinct ids")
	}
	// ULIDs minted in sequence from the default monotonic source never sort
	// backwards.
	if a > b {
		t.Errorf("expected %s <= %s (monotonic ulid ordering)", a, b)
	}
}

func TestJobRoundTripsThroughJSON(t *testing.T) {
	job := newJob(testPayload{Name: "med-1"})
	job.TraceContext = map[string]string{"traceparent": "00-abc-def-01"}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Job[testPayload]
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ID != job.ID {
		t.Errorf("id mismatch: got %s, want %s", decoded.ID, job.ID)
	}
	if decoded.Payload.Name != "med-1" {
		t.Errorf("payload mismatch: got %s", decoded.Payload.Name)
	}
	if decoded.TraceContext["traceparent"] != "00-abc-def-01" {
		t.Errorf("trace context mismatch: got %v", decoded.TraceContext)
	}
}

func TestJobOmitsTraceContextWhenAbsent(t *testing.T) {
	job := newJob(testPayload{Name: "no-trace"})
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := raw["trace_context"]; present {
		t.Error("expected trace_context to be omitted when nil")
	}
}
