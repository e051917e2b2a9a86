package attachments

import (
	"context"

	"github.com/evenfall/nightpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	SelectByThread(ctx context.Context, threadID string) ([]models.Attachment, error)
}
