package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lapstore/storefront-api/internal/usecase"
)

// MySQLOutboxRepo serves the relay side of the transactional outbox; rows are
// written by MySQLCheckoutStore inside the checkout transaction.
type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) NextBatch(ctx context.Context, limit int) ([]usecase.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, channel, payload FROM outbox
WHERE status = 'PENDING' AND next_attempt_at <= NOW()
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select outbox batch: %w", err)
	}
	defer rows.Close()

	var out []usecase.OutboxEvent
	for rows.Next() {
		var ev usecase.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Channel, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status = 'SENT', sent_at = NOW() WHERE id = ?`, id)
	return err
}

func (r *MySQLOutboxRepo) Delay(ctx context.Context, id int64, retryIn time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox
SET retry_count = retry_count + 1,
    next_attempt_at = DATE_ADD(NOW(), INTERVAL ? SECOND)
WHERE id = ?`, int64(retryIn.Seconds()), id)
	return err
}

// insertOutboxTx writes an event row in the caller's transaction.
func insertOutboxTx(ctx context.Context, tx *sql.Tx, channel string, payload []byte) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO outbox (channel, payload, status, retry_count, next_attempt_at, created_at)
VALUES (?, ?, 'PENDING', 0, NOW(), NOW())`, channel, payload)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
