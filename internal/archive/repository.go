package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quietstack/jetqueue/queue"
)

// Repository provides common database operations shared by the archiver's
// domain-specific queries.
type Repository struct {
	conn *Connection
}

// NewRepository creates a new repository instance.
func NewRepository(conn *Connection) *Repository {
	return &Repository{conn: conn}
}

// Connection returns the underlying database connection.
func (r *Repository) Connection() *Connection { return r.conn }

// WithTransaction executes fn within a database transaction.
func (r *Repository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return r.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions executes fn within a transaction using opts.
func (r *Repository) WithTransactionOptions(ctx context.Context, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	tx, err := r.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RetryableOperation executes operation with exponential backoff, retrying
// only errors IsRetryableError classifies as transient.
func (r *Repository) RetryableOperation(ctx context.Context, maxRetries int, operation func() error) error {
	var lastErr error
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > 10*time.Second {
					backoff = 10 * time.Second
				}
			}
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !IsRetryableError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
}

// HealthCheck performs a basic connectivity and query health check.
func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.conn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := r.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("database query returned unexpected result: %d", result)
	}

	return nil
}

// GetConnectionStats returns database connection pool statistics.
func (r *Repository) GetConnectionStats() sql.DBStats {
	return r.conn.Stats()
}

// DLQRecordsRepository persists dead-letter records for durable querying
// and replay, independent of the broker's own retention window on the DLQ
// stream.
type DLQRecordsRepository struct {
	*Repository
}

// NewDLQRecordsRepository creates a new dlq_records repository.
func NewDLQRecordsRepository(conn *Connection) *DLQRecordsRepository {
	return &DLQRecordsRepository{Repository: NewRepository(conn)}
}

// Migrate creates the dlq_records table if it does not already exist.
func (r *DLQRecordsRepository) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS dlq_records (
			id BIGSERIAL PRIMARY KEY,
			original_task_id TEXT NOT NULL,
			error TEXT NOT NULL,
			attempts TEXT NOT NULL,
			delivered_count INT NOT NULL,
			dlq_reason TEXT NOT NULL,
			payload BYTEA NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS dlq_records_task_id_idx ON dlq_records (original_task_id);
		CREATE INDEX IF NOT EXISTS dlq_records_reason_idx ON dlq_records (dlq_reason);`

	_, err := r.conn.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("migrate dlq_records: %w", err)
	}
	return nil
}

// Insert archives a single DLQ record. original_task_id is not unique in
// the schema: a crash between DLQ publish and source ack can legitimately
// duplicate an entry on redelivery, and the archiver preserves every
// occurrence for audit purposes rather than deduping at write time.
func (r *DLQRecordsRepository) Insert(ctx context.Context, rec queue.DLQRecord) error {
	const query = `
		INSERT INTO dlq_records
			(original_task_id, error, attempts, delivered_count, dlq_reason, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.conn.ExecContext(ctx, query,
		rec.OriginalTaskID, rec.Error, rec.Attempts, rec.DeliveredCount,
		string(rec.DLQReason), rec.Payload, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert dlq record: %w", err)
	}
	return nil
}

// ArchivedDLQRecord is a dlq_records row, including archiver bookkeeping
// fields not present on the wire-level queue.DLQRecord.
type ArchivedDLQRecord struct {
	ID             int64
	OriginalTaskID string
	Error          string
	Attempts       string
	DeliveredCount int
	DLQReason      string
	Payload        []byte
	RecordedAt     time.Time
	ArchivedAt     time.Time
}

// ListByTaskID returns every archived occurrence of a task id, most recent
// first, useful when diagnosing a duplicate-DLQ-entry crash window.
func (r *DLQRecordsRepository) ListByTaskID(ctx context.Context, taskID string, limit int) ([]ArchivedDLQRecord, error) {
	const query = `
		SELECT id, original_task_id, error, attempts, delivered_count, dlq_reason, payload, recorded_at, archived_at
		FROM dlq_records
		WHERE original_task_id = $1
		ORDER BY archived_at DESC
		LIMIT $2`

	rows, err := r.conn.QueryContext(ctx, query, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("query dlq records by task id: %w", err)
	}
	defer rows.Close()

	return scanDLQRecords(rows)
}

// ListByReason returns the most recent archived records for a given
// dlq_reason, for building an operator-facing dashboard breakdown.
func (r *DLQRecordsRepository) ListByReason(ctx context.Context, reason string, limit int) ([]ArchivedDLQRecord, error) {
	const query = `
		SELECT id, original_task_id, error, attempts, delivered_count, dlq_reason, payload, recorded_at, archived_at
		FROM dlq_records
		WHERE dlq_reason = $1
		ORDER BY archived_at DESC
		LIMIT $2`

	rows, err := r.conn.QueryContext(ctx, query, reason, limit)
	if err != nil {
		return nil, fmt.Errorf("query dlq records by reason: %w", err)
	}
	defer rows.Close()

	return scanDLQRecords(rows)
}

func scanDLQRecords(rows *sql.Rows) ([]ArchivedDLQRecord, error) {
	var out []ArchivedDLQRecord
	for rows.Next() {
		var rec ArchivedDLQRecord
		if err := rows.Scan(
			&rec.ID, &rec.OriginalTaskID, &rec.Error, &rec.Attempts,
			&rec.DeliveredCount, &rec.DLQReason, &rec.Payload, &rec.RecordedAt, &rec.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dlq record row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dlq record rows: %w", err)
	}
	return out, nil
}

// CountByReason returns the number of archived records for reason, used by
// the dashboard's DLQ-by-reason summary.
func (r *DLQRecordsRepository) CountByReason(ctx context.Context, reason string) (int64, error) {
	var count int64
	err := r.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM dlq_records WHERE dlq_reason = $1", reason).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count dlq records by reason: %w", err)
	}
	return count, nil
}
