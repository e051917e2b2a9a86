// Package attachments provides the PostgreSQL-backed repository for thread
// attachments. Rows are owned by their thread and removed with it by the
// FK cascade; the repository itself never deletes.
package attachments

import (
	"context"
	"fmt"

	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	query := `
		INSERT INTO attachments (id, thread_id, url, filename, kind)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		attachment.ID, attachment.ThreadID, attachment.URL, attachment.Filename, attachment.Kind)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectByThread(ctx context.Context, threadID string) ([]models.Attachment, error) {
	query := `
		SELECT id, thread_id, url, filename, kind
		FROM attachments
		WHERE thread_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.ThreadID, &a.URL, &a.Filename, &a.Kind); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
