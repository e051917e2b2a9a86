package attachments

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/evenfall/nightpost/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_InsertsRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO attachments`).
		WithArgs("a1", "t1", "https://storage/letters/a1", "moon.png", "image").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Attachment{
		ID: "a1", ThreadID: "t1", URL: "https://storage/letters/a1",
		Filename: "moon.png", Kind: models.AttachmentImage,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO attachments`).
		WillReturnError(errors.New("db is down"))

	err := repo.Create(context.Background(), &models.Attachment{
		ID: "a1", ThreadID: "t1", URL: "u", Kind: models.AttachmentFile,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSelectByThread(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "thread_id", "url", "filename", "kind"}).
		AddRow("a1", "t1", "https://storage/1", "moon.png", "image").
		AddRow("a2", "t1", "https://storage/2", "", "audio")

	mock.ExpectQuery(`FROM attachments`).
		WithArgs("t1").
		WillReturnRows(rows)

	result, err := repo.SelectByThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("want 2 attachments, got %d", len(result))
	}
	if result[1].Kind != models.AttachmentAudio {
		t.Fatalf("unexpected kind: %q", result[1].Kind)
	}
}
