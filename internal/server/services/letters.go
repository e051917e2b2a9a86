// Package services contains the server-side business logic of the letter
// mailbox: delivering letters, the daily pool assignment, read transitions,
// and the derived mailbox statistics.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/logging"
	"github.com/evenfall/nightpost/internal/server/config"
	"github.com/evenfall/nightpost/internal/server/metrics"
	"github.com/evenfall/nightpost/internal/server/models"
	"github.com/evenfall/nightpost/internal/server/repositories/repomanager"
	"github.com/evenfall/nightpost/internal/server/statscache"
)

// DefaultTitle is used when a sender leaves the title empty.
const DefaultTitle = "a goodnight letter"

const boxPageSize = 20

// LetterService implements the mailbox operations on top of the thread and
// attachment repositories. All state lives in PostgreSQL; the service itself
// is stateless and safe for concurrent use across instances.
type LetterService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *statscache.Cache
	logger      logging.Logger

	lockTimeout  time.Duration
	retryBackoff time.Duration
}

// NewLetterService constructs a LetterService. cache may be nil.
func NewLetterService(db *sql.DB, m repomanager.RepositoryManager, cache *statscache.Cache, logger logging.Logger, cfg *config.Config) *LetterService {
	return &LetterService{
		db:           db,
		repomanager:  m,
		cache:        cache,
		logger:       logger.With("component", "letters"),
		lockTimeout:  cfg.AssignLockTimeout,
		retryBackoff: cfg.AssignRetryBackoff,
	}
}

// AttachmentInput is one attachment reference supplied with a delivery.
type AttachmentInput struct {
	URL      string
	Filename string
	Kind     string
}

// DeliverRequest carries the sender-provided fields of a new letter.
type DeliverRequest struct {
	Title       string
	Content     string
	RecipientID string // empty = public (pool) letter
	Attachments []AttachmentInput
}

func validAttachmentKind(kind string) bool {
	switch kind {
	case models.AttachmentImage, models.AttachmentFile, models.AttachmentAudio:
		return true
	}
	return false
}

// Deliver creates a thread and its attachments in one transaction. A letter
// with a recipient is private and delivered directly; without one it enters
// the public pool.
func (s *LetterService) Deliver(ctx context.Context, senderID string, req DeliverRequest) (*models.Thread, []models.Attachment, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, nil, fmt.Errorf("content must not be empty: %w", common.ErrorValidation)
	}
	for _, a := range req.Attachments {
		if strings.TrimSpace(a.URL) == "" {
			return nil, nil, fmt.Errorf("attachment url must not be empty: %w", common.ErrorValidation)
		}
		if !validAttachmentKind(a.Kind) {
			return nil, nil, fmt.Errorf("unknown attachment kind %q: %w", a.Kind, common.ErrorValidation)
		}
	}

	title := req.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	thread := &models.Thread{
		ID:       uuid.New().String(),
		SenderID: senderID,
		Title:    title,
		Content:  req.Content,
		Status:   models.StatusPublic,
	}
	if req.RecipientID != "" {
		thread.Status = models.StatusPrivate
		thread.RecipientID = sql.NullString{String: req.RecipientID, Valid: true}
	}

	var created []models.Attachment
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		threadRepo := s.repomanager.Threads(tx)
		if err := threadRepo.Create(ctx, thread); err != nil {
			return err
		}
		attachmentRepo := s.repomanager.Attachments(tx)
		for _, a := range req.Attachments {
			attachment := models.Attachment{
				ID:       uuid.New().String(),
				ThreadID: thread.ID,
				URL:      a.URL,
				Filename: a.Filename,
				Kind:     a.Kind,
			}
			if err := attachmentRepo.Create(ctx, &attachment); err != nil {
				return err
			}
			created = append(created, attachment)
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "deliver failed", "sender_id", senderID, "error", err)
		return nil, nil, fmt.Errorf("error creating thread: %w", common.ErrorInternal)
	}

	metrics.LettersDeliveredTotal.WithLabelValues(thread.Status).Inc()

	if req.RecipientID != "" {
		s.invalidateStats(ctx, req.RecipientID)
	}

	return thread, created, nil
}

// Get returns a thread with its attachments.
func (s *LetterService) Get(ctx context.Context, threadID string) (*models.Thread, []models.Attachment, error) {
	threadRepo := s.repomanager.Threads(s.db)
	thread, err := threadRepo.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "get thread failed", "thread_id", threadID, "error", err)
		return nil, nil, common.ErrorInternal
	}
	attachmentRepo := s.repomanager.Attachments(s.db)
	atts, err := attachmentRepo.SelectByThread(ctx, threadID)
	if err != nil {
		s.logger.Error(ctx, "get attachments failed", "thread_id", threadID, "error", err)
		return nil, nil, common.ErrorInternal
	}
	return thread, atts, nil
}

// Box returns one page of the requested mailbox view. Pages are 1-based.
func (s *LetterService) Box(ctx context.Context, kind models.BoxKind, userID string, page int) ([]models.Thread, error) {
	if page < 1 {
		page = 1
	}
	repo := s.repomanager.Threads(s.db)
	result, err := repo.SelectBox(ctx, kind, userID, boxPageSize, (page-1)*boxPageSize)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		s.logger.Error(ctx, "box query failed", "box", kind.String(), "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}
	return result, nil
}

func (s *LetterService) invalidateStats(ctx context.Context, recipientID string) {
	if err := s.cache.Invalidate(ctx, recipientID); err != nil {
		s.logger.Warn(ctx, "stats cache invalidation failed", "recipient_id", recipientID, "error", err)
	}
}
