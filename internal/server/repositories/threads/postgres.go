// Package threads provides the PostgreSQL-backed repository for letter
// threads: creation, the locked pool claim, read transitions, and the fixed
// mailbox/stat queries.
package threads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/models"
)

// Postgres error codes we translate into sentinel errors.
const (
	pgCodeUniqueViolation  = "23505"
	pgCodeLockNotAvailable = "55P03"
)

const threadColumns = `id, sender_id, recipient_id, title, content, status, is_read, picked_at, read_at, created_at, updated_at`

// PostgresRepository implements thread storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func scanThread(row interface{ Scan(dest ...any) error }) (*models.Thread, error) {
	var t models.Thread
	err := row.Scan(
		&t.ID, &t.SenderID, &t.RecipientID, &t.Title, &t.Content, &t.Status,
		&t.IsRead, &t.PickedAt, &t.ReadAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new thread. Field invariants (status/recipient pairing)
// are validated by the service layer; the table CHECKs are the backstop.
func (r *PostgresRepository) Create(ctx context.Context, thread *models.Thread) error {
	query := `
		INSERT INTO threads (id, sender_id, recipient_id, title, content, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		thread.ID, thread.SenderID, thread.RecipientID, thread.Title, thread.Content, thread.Status,
	).Scan(&thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert thread: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	t, err := scanThread(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select thread: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1 FOR UPDATE`
	t, err := scanThread(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if pgErrorCode(err) == pgCodeLockNotAvailable {
			return nil, common.ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to select thread for update: %w", err)
	}
	return t, nil
}

// SelectOldestPublicForUpdate locks the head of the public pool. Ties on
// created_at break by id so the order is total.
func (r *PostgresRepository) SelectOldestPublicForUpdate(ctx context.Context) (*models.Thread, error) {
	query := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE status = 'public'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`
	t, err := scanThread(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if pgErrorCode(err) == pgCodeLockNotAvailable {
			return nil, common.ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to select public thread: %w", err)
	}
	return t, nil
}

// Claim assigns the thread to recipientID. The status guard in the WHERE
// clause is load-bearing: combined with the row lock it guarantees a public
// thread is consumed by exactly one recipient.
func (r *PostgresRepository) Claim(ctx context.Context, threadID, recipientID string) (*models.Thread, error) {
	query := `
		UPDATE threads
		SET recipient_id = $2,
		    status = 'picked',
		    picked_at = now(),
		    picked_on = CURRENT_DATE,
		    is_read = false,
		    read_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND status = 'public'
		RETURNING ` + threadColumns
	t, err := scanThread(r.db.QueryRowContext(ctx, query, threadID, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNoneAvailable
		}
		switch pgErrorCode(err) {
		case pgCodeUniqueViolation:
			return nil, common.ErrorAlreadyAssignedToday
		case pgCodeLockNotAvailable:
			return nil, common.ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to claim thread: %w", err)
	}
	return t, nil
}

// MarkRead sets is_read once. The is_read = false guard keeps the transition
// one-way; a zero-row result means there was nothing left to do.
func (r *PostgresRepository) MarkRead(ctx context.Context, threadID, recipientID string) (*models.Thread, error) {
	query := `
		UPDATE threads
		SET is_read = true, read_at = now(), updated_at = now()
		WHERE id = $1 AND recipient_id = $2 AND is_read = false
		RETURNING ` + threadColumns
	t, err := scanThread(r.db.QueryRowContext(ctx, query, threadID, recipientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to mark thread read: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) HasPickedToday(ctx context.Context, recipientID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM threads
			WHERE recipient_id = $1 AND status = 'picked' AND picked_on = CURRENT_DATE
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check daily pick: %w", err)
	}
	return exists, nil
}

// SelectCounts computes all mailbox counters in one pass over the user's rows.
func (r *PostgresRepository) SelectCounts(ctx context.Context, userID string) (*Counts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE sender_id = $1) AS sent,
			COUNT(*) FILTER (WHERE recipient_id = $1) AS received,
			COUNT(*) FILTER (WHERE recipient_id = $1 AND NOT is_read) AS unread,
			COUNT(*) FILTER (WHERE recipient_id = $1 AND (picked_on = CURRENT_DATE
				OR (status = 'private' AND created_at >= CURRENT_DATE))) AS received_today,
			COUNT(*) FILTER (WHERE recipient_id = $1 AND status = 'picked'
				AND picked_on = CURRENT_DATE) > 0 AS assigned_today
		FROM threads
		WHERE sender_id = $1 OR recipient_id = $1
	`
	var c Counts
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.Sent, &c.Received, &c.Unread, &c.ReceivedToday, &c.AssignedToday,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select counts: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) SelectLatestUnread(ctx context.Context, recipientID string, limit int) ([]models.Thread, error) {
	query := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE recipient_id = $1 AND is_read = false
		ORDER BY COALESCE(picked_at, created_at) DESC
		LIMIT $2
	`
	return r.selectThreads(ctx, query, recipientID, limit)
}

// Fixed query shapes for the mailbox views. The kind is resolved to one of
// these constants at the call boundary; no query text is ever assembled from
// request data.
const (
	boxSentQuery = `
		SELECT ` + threadColumns + ` FROM threads
		WHERE sender_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	boxReceivedQuery = `
		SELECT ` + threadColumns + ` FROM threads
		WHERE recipient_id = $1
		ORDER BY COALESCE(picked_at, created_at) DESC
		LIMIT $2 OFFSET $3`

	boxMineQuery = `
		SELECT ` + threadColumns + ` FROM threads
		WHERE recipient_id = $1 AND status = 'picked'
		ORDER BY picked_at DESC
		LIMIT $2 OFFSET $3`
)

func (r *PostgresRepository) SelectBox(ctx context.Context, kind models.BoxKind, userID string, limit, offset int) ([]models.Thread, error) {
	var query string
	switch kind {
	case models.BoxSent:
		query = boxSentQuery
	case models.BoxReceived:
		query = boxReceivedQuery
	case models.BoxMine:
		query = boxMineQuery
	default:
		return nil, fmt.Errorf("unknown box kind %d: %w", kind, common.ErrorValidation)
	}
	return r.selectThreads(ctx, query, userID, limit, offset)
}

func (r *PostgresRepository) selectThreads(ctx context.Context, query string, args ...any) ([]models.Thread, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select threads: %w", err)
	}
	defer rows.Close()

	var result []models.Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetLocalLockTimeout issues SET LOCAL for the current transaction. The value
// is formatted from a duration, never from caller input.
func (r *PostgresRepository) SetLocalLockTimeout(ctx context.Context, d time.Duration) error {
	query := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}
