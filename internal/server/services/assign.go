package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/metrics"
	"github.com/evenfall/nightpost/internal/server/models"
)

// AssignOutcome enumerates the benign results of a daily-assignment request.
// All three are ordinary responses; none of them is an error.
type AssignOutcome string

const (
	OutcomeAssigned            AssignOutcome = "assigned"
	OutcomeAlreadyAssigned     AssignOutcome = "already_assigned"
	OutcomeNoMessagesAvailable AssignOutcome = "none_available"
)

// AssignmentResult is what a daily-assignment request produces: the outcome,
// the claimed thread (only for OutcomeAssigned), and the recipient's current
// stats.
type AssignmentResult struct {
	Outcome AssignOutcome
	Thread  *models.Thread
	Stats   *models.DailyStats
}

// AssignDaily hands the recipient the oldest unclaimed public letter, at most
// once per calendar day.
//
// The claim runs in a single transaction: lock the head of the public pool,
// re-check its status and the recipient's quota under that lock, then apply
// the status-guarded update. The row lock serializes concurrent claimants on
// the same head row, so the in-transaction quota re-check closes the
// check-then-act window between two requests from the same recipient; the
// partial unique index on (recipient_id, picked_on) backs that up at the
// storage level. A lock-wait timeout is retried once with a short backoff
// before being surfaced as a retryable failure.
func (s *LetterService) AssignDaily(ctx context.Context, recipientID string) (*AssignmentResult, error) {
	repo := s.repomanager.Threads(s.db)

	// Fast path: quota already spent today. Purely advisory; the
	// authoritative check happens again inside the claim transaction.
	picked, err := repo.HasPickedToday(ctx, recipientID)
	if err != nil {
		s.logger.Error(ctx, "quota check failed", "recipient_id", recipientID, "error", err)
		return nil, common.ErrorInternal
	}
	if picked {
		return s.assignmentResult(ctx, OutcomeAlreadyAssigned, nil, recipientID)
	}

	var claimed *models.Thread
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		claimErr := s.claimOldestPublic(ctx, recipientID, &claimed)
		if errors.Is(claimErr, common.ErrLockTimeout) {
			metrics.AssignmentLockRetries.Inc()
			return retry.RetryableError(claimErr)
		}
		return claimErr
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "public thread assigned", "thread_id", claimed.ID, "recipient_id", recipientID)
		s.invalidateStats(ctx, recipientID)
		return s.assignmentResult(ctx, OutcomeAssigned, claimed, recipientID)
	case errors.Is(err, common.ErrorNoneAvailable):
		return s.assignmentResult(ctx, OutcomeNoMessagesAvailable, nil, recipientID)
	case errors.Is(err, common.ErrorAlreadyAssignedToday):
		return s.assignmentResult(ctx, OutcomeAlreadyAssigned, nil, recipientID)
	case errors.Is(err, common.ErrLockTimeout):
		metrics.AssignmentsTotal.WithLabelValues("error").Inc()
		s.logger.Warn(ctx, "assignment lock wait exceeded", "recipient_id", recipientID)
		return nil, fmt.Errorf("assignment contended, retry later: %w", common.ErrLockTimeout)
	default:
		metrics.AssignmentsTotal.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "assignment failed", "recipient_id", recipientID, "error", err)
		return nil, common.ErrorInternal
	}
}

// claimOldestPublic is the single-transaction claim described above.
func (s *LetterService) claimOldestPublic(ctx context.Context, recipientID string, claimed **models.Thread) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Threads(tx)

		if err := repo.SetLocalLockTimeout(ctx, s.lockTimeout); err != nil {
			return err
		}

		head, err := repo.SelectOldestPublicForUpdate(ctx)
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNoneAvailable
		}
		if err != nil {
			return err
		}

		// Re-validate under the lock: the row we waited on may have been
		// claimed while we blocked.
		if head.Status != models.StatusPublic {
			return common.ErrorNoneAvailable
		}

		// Quota re-check under the same lock that serializes claimants.
		already, err := repo.HasPickedToday(ctx, recipientID)
		if err != nil {
			return err
		}
		if already {
			return common.ErrorAlreadyAssignedToday
		}

		thread, err := repo.Claim(ctx, head.ID, recipientID)
		if err != nil {
			return err
		}
		*claimed = thread
		return nil
	})
}

func (s *LetterService) assignmentResult(ctx context.Context, outcome AssignOutcome, thread *models.Thread, recipientID string) (*AssignmentResult, error) {
	metrics.AssignmentsTotal.WithLabelValues(string(outcome)).Inc()
	stats, err := s.Stats(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	return &AssignmentResult{Outcome: outcome, Thread: thread, Stats: stats}, nil
}
