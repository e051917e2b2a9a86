package threads

import (
	"context"
	"time"

	"github.com/evenfall/nightpost/internal/server/models"
)

// Counts is the single-row aggregate used to build DailyStats.
type Counts struct {
	Sent          int
	Received      int
	Unread        int
	ReceivedToday int
	AssignedToday bool
}

type Repository interface {
	Create(ctx context.Context, thread *models.Thread) error
	Get(ctx context.Context, id string) (*models.Thread, error)

	// GetForUpdate locks the row for the duration of the surrounding
	// transaction. Only meaningful when the repository is bound to a *sql.Tx.
	GetForUpdate(ctx context.Context, id string) (*models.Thread, error)

	// SelectOldestPublicForUpdate picks the head of the public pool
	// (created_at ascending) and locks it. Returns common.ErrorNotFound when
	// the pool is empty and common.ErrLockTimeout when the lock wait exceeds
	// the transaction-local bound.
	SelectOldestPublicForUpdate(ctx context.Context) (*models.Thread, error)

	// Claim performs the guarded pick: the update only applies while the row
	// is still public, so a racing transaction can never double-assign.
	// Returns common.ErrorNoneAvailable when the guard matches no row and
	// common.ErrorAlreadyAssignedToday on a daily-pick uniqueness violation.
	Claim(ctx context.Context, threadID, recipientID string) (*models.Thread, error)

	// MarkRead flips is_read exactly once; zero rows affected means the
	// thread was already read (or the guard did not match).
	MarkRead(ctx context.Context, threadID, recipientID string) (*models.Thread, error)

	HasPickedToday(ctx context.Context, recipientID string) (bool, error)
	SelectCounts(ctx context.Context, userID string) (*Counts, error)
	SelectLatestUnread(ctx context.Context, recipientID string, limit int) ([]models.Thread, error)
	SelectBox(ctx context.Context, kind models.BoxKind, userID string, limit, offset int) ([]models.Thread, error)

	// SetLocalLockTimeout bounds lock waits for the rest of the current
	// transaction (SET LOCAL). A no-op outside a transaction.
	SetLocalLockTimeout(ctx context.Context, d time.Duration) error
}
