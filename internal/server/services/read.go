package services

import (
	"context"
	"errors"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/models"
)

// Accept marks an addressed thread as read by its recipient. The transition
// happens at most once; repeated calls succeed and return the thread as-is.
// Applies to any thread with a concrete recipient, private or picked.
func (s *LetterService) Accept(ctx context.Context, threadID, recipientID string) (*models.Thread, error) {
	var result *models.Thread
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Threads(tx)

		thread, err := repo.GetForUpdate(ctx, threadID)
		if err != nil {
			return err
		}
		if !thread.RecipientID.Valid || thread.RecipientID.String != recipientID {
			return common.ErrorForbidden
		}
		if thread.IsRead {
			// Idempotent: already read, nothing to change.
			result = thread
			return nil
		}

		updated, err := repo.MarkRead(ctx, threadID, recipientID)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorForbidden) {
			return nil, err
		}
		s.logger.Error(ctx, "accept failed", "thread_id", threadID, "recipient_id", recipientID, "error", err)
		return nil, common.ErrorInternal
	}

	s.invalidateStats(ctx, recipientID)
	return result, nil
}
