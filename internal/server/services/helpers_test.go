package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/evenfall/nightpost/internal/logging"
	"github.com/evenfall/nightpost/internal/server/config"
	"github.com/evenfall/nightpost/internal/server/repositories/repomanager"
)

var threadCols = []string{
	"id", "sender_id", "recipient_id", "title", "content", "status",
	"is_read", "picked_at", "read_at", "created_at", "updated_at",
}

func testConfig() *config.Config {
	return &config.Config{
		AssignLockTimeout:  time.Second,
		AssignRetryBackoff: time.Millisecond,
	}
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newServiceWithMock wires a LetterService to real Postgres repositories over
// a sqlmock database, so tests can script exact transaction interleavings.
func newServiceWithMock(t *testing.T) (*LetterService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewLetterService(db, repomanager.NewPostgresRepositoryManager(), nil, discardLogger(), testConfig())
	return s, mock
}

func publicRow(id string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(threadCols).
		AddRow(id, "sender-1", nil, DefaultTitle, "sleep well", "public",
			false, nil, nil, createdAt, createdAt)
}

func pickedRow(id, recipientID string, pickedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(threadCols).
		AddRow(id, "sender-1", recipientID, DefaultTitle, "sleep well", "picked",
			false, pickedAt, nil, pickedAt.Add(-time.Hour), pickedAt)
}

func existsRow(v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(v)
}

func countsRow(sent, received, unread, receivedToday int, assignedToday bool) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"sent", "received", "unread", "received_today", "assigned_today"}).
		AddRow(sent, received, unread, receivedToday, assignedToday)
}

// expectStats scripts the two read queries behind Stats for a cache-less
// service.
func expectStats(mock sqlmock.Sqlmock, userID string, counts *sqlmock.Rows) {
	mock.ExpectQuery(`FILTER`).WithArgs(userID).WillReturnRows(counts)
	mock.ExpectQuery(`ORDER BY COALESCE`).
		WithArgs(userID, latestUnreadLimit).
		WillReturnRows(sqlmock.NewRows(threadCols))
}
