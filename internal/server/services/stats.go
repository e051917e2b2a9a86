package services

import (
	"context"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/server/models"
)

const latestUnreadLimit = 5

// Stats returns the recipient's daily mailbox view. Pure reads; safe to call
// any number of times. A warm cache entry short-circuits the SQL recompute.
func (s *LetterService) Stats(ctx context.Context, recipientID string) (*models.DailyStats, error) {
	if cached, err := s.cache.Get(ctx, recipientID); err != nil {
		s.logger.Warn(ctx, "stats cache read failed", "recipient_id", recipientID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	repo := s.repomanager.Threads(s.db)

	counts, err := repo.SelectCounts(ctx, recipientID)
	if err != nil {
		s.logger.Error(ctx, "stats counts failed", "recipient_id", recipientID, "error", err)
		return nil, common.ErrorInternal
	}

	latest, err := repo.SelectLatestUnread(ctx, recipientID, latestUnreadLimit)
	if err != nil {
		s.logger.Error(ctx, "stats latest-unread failed", "recipient_id", recipientID, "error", err)
		return nil, common.ErrorInternal
	}

	stats := &models.DailyStats{
		TodayAssigned:      counts.AssignedToday,
		TodayReceivedCount: counts.ReceivedToday,
		UnreadCount:        counts.Unread,
		SentCount:          counts.Sent,
		ReceivedCount:      counts.Received,
		LatestUnread:       latest,
	}

	if err := s.cache.Set(ctx, recipientID, stats); err != nil {
		s.logger.Warn(ctx, "stats cache write failed", "recipient_id", recipientID, "error", err)
	}

	return stats, nil
}
