package queue

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBuildDLQRecord(t *testing.T) {
	envelope := []byte(`{"id":"01H","payload":{"name":"x"}}`)
	rec := buildDLQRecord("01H", errors.New("boom"), 5, ReasonMaxDeliver, envelope)

	if rec.OriginalTaskID != "01H" {
		t.Errorf("expected original_task_id 01H, got %s", rec.OriginalTaskID)
	}
	if rec.Error != "boom" {
		t.Errorf("expected error boom, got %s", rec.Error)
	}
	if rec.DeliveredCount != 5 {
		t.Errorf("expected delivered_count 5, got %d", rec.DeliveredCount)
	}
	if rec.DLQReason != ReasonMaxDeliver {
		t.Errorf("expected reason max_deliver_exceeded, got %s", rec.DLQReason)
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestDLQRecordPayloadRoundTrips(t *testing.T) {
	envelope := []byte(`{"id":"01H","payload":{"name":"x"}}`)
	rec := buildDLQRecord("01H", errors.New("bad input"), 1, ReasonAbort, envelope)

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded DLQRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if string(decoded.Payload) != string(envelope) {
		t.Errorf("payload not recovered verbatim: got %s, want %s", decoded.Payload, envelope)
	}
	if decoded.DLQReason != ReasonAbort {
		t.Errorf("expected reason abort_error, got %s", decoded.DLQReason)
	}
}

func TestFmtAttempts(t *testing.T) {
	if got := fmtAttempts(1); got != "1 attempt" {
		t.Errorf("fmtAttempts(1) = %s", got)
	}
	if got := fmtAttempts(3); got != "3 attempts" {
		t.Errorf("fmtAttempts(3) = %s", got)
	}
}
