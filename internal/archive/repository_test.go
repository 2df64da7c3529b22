package archive

import (
	"context"
	"testing"
	"time"

	"github.com/quietstack/jetqueue/queue"
)

// These tests require a live Postgres instance (skip if not available).

func newTestRepo(t *testing.T) *DLQRecordsRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := DefaultConnectionConfig()
	cfg.Database = "jetqueue_test"

	conn, err := NewConnection(cfg)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	repo := NewDLQRecordsRepository(conn)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestDLQRecordsRepositoryInsertAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := queue.DLQRecord{
		OriginalTaskID: "01H-TEST-TASK",
		Error:          "boom",
		Attempts:       "3 attempts",
		DeliveredCount: 3,
		Timestamp:      time.Now().UTC(),
		DLQReason:      queue.ReasonMaxDeliver,
		Payload:        []byte(`{"id":"01H-TEST-TASK"}`),
	}

	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := repo.ListByTaskID(ctx, "01H-TEST-TASK", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("expected at least one archived record")
	}
	if found[0].OriginalTaskID != "01H-TEST-TASK" {
		t.Errorf("expected task id 01H-TEST-TASK, got %s", found[0].OriginalTaskID)
	}
	if string(found[0].Payload) != string(rec.Payload) {
		t.Errorf("payload not preserved verbatim: got %s", found[0].Payload)
	}
}

func TestDLQRecordsRepositoryHealthCheck(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
