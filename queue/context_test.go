package queue

import (
	"errors"
	"testing"
	"time"
)

func TestContextAckIsTerminal(t *testing.T) {
	acked := false
	msg := fakeMsg{acked: &acked}
	c := newContext(msg, Medium, "01H", 1, nil, []byte("{}"))

	if err := c.Ack(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acked {
		t.Error("expected underlying Ack to be called")
	}

	if err := c.Ack(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized on second Ack, got %v", err)
	}
	if err := c.Term(); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized on Term after Ack, got %v", err)
	}
}

func TestContextNackAppliesDelay(t *testing.T) {
	naked := false
	var delay time.Duration
	msg := fakeMsg{naked: &naked, nakDelay: &delay}
	c := newContext(msg, Low, "01H", 1, nil, []byte("{}"))

	if err := c.Nack(5 * time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !naked {
		t.Error("expected underlying Nak to be called")
	}
	if delay != 5*time.Second {
		t.Errorf("expected delay 5s, got %v", delay)
	}
}

func TestContextProgressIsIdempotentAfterFinalize(t *testing.T) {
	acked := false
	progressCalls := 0
	msg := fakeMsg{acked: &acked, inProgress: &progressCalls}
	c := newContext(msg, High, "01H", 1, nil, []byte("{}"))

	if err := c.Progress(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progressCalls != 1 {
		t.Errorf("expected 1 progress call, got %d", progressCalls)
	}

	if err := c.Ack(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Progress after finalization is a no-op, not an error.
	if err := c.Progress(); err != nil {
		t.Fatalf("expected no error calling progress after finalize, got %v", err)
	}
	if progressCalls != 1 {
		t.Errorf("expected progress to be skipped post-finalize, got %d calls", progressCalls)
	}
}

func TestContextDeliveredCountFromMetadata(t *testing.T) {
	msg := fakeMsg{numDelivered: 3}
	c := newContext(msg, Medium, "01H", 1, nil, []byte("{}"))

	if c.DeliveredCount() != 3 {
		t.Errorf("expected delivered count 3, got %d", c.DeliveredCount())
	}
}
