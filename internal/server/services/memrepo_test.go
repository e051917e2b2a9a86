package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/dbx"
	"github.com/evenfall/nightpost/internal/server/models"
	"github.com/evenfall/nightpost/internal/server/repositories/attachments"
	"github.com/evenfall/nightpost/internal/server/repositories/threads"
)

// memStore is an in-memory thread store that emulates the locking behavior
// of the Postgres pool claim: SelectOldestPublicForUpdate acquires the claim
// mutex and the following HasPickedToday/Claim call on the same store
// releases it, mirroring the row lock held from SELECT FOR UPDATE to COMMIT.
// It exists to exercise the service's claim flow under real goroutine
// concurrency, which sqlmock's ordered scripts cannot express.
type memStore struct {
	dataMu  sync.Mutex
	claimMu sync.Mutex

	threads map[string]*models.Thread
	picked  map[string]string // recipientID -> threadID picked today
}

func newMemStore() *memStore {
	return &memStore{
		threads: make(map[string]*models.Thread),
		picked:  make(map[string]string),
	}
}

func (s *memStore) addPublic(id string, createdAt time.Time) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.threads[id] = &models.Thread{
		ID: id, SenderID: "sender-1", Title: DefaultTitle, Content: "sleep well",
		Status: models.StatusPublic, CreatedAt: createdAt, UpdatedAt: createdAt,
	}
}

type memRepoManager struct {
	store *memStore
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memRepoManager) Threads(db dbx.DBTX) threads.Repository {
	return &memThreadRepo{store: m.store}
}

func (m *memRepoManager) Attachments(db dbx.DBTX) attachments.Repository {
	return &memAttachmentRepo{}
}

type memThreadRepo struct {
	store *memStore
	held  bool // this session holds the claim mutex
}

func (r *memThreadRepo) release() {
	if r.held {
		r.held = false
		r.store.claimMu.Unlock()
	}
}

func (r *memThreadRepo) SelectOldestPublicForUpdate(ctx context.Context) (*models.Thread, error) {
	r.store.claimMu.Lock()
	r.held = true

	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	var ids []string
	for id, t := range r.store.threads {
		if t.Status == models.StatusPublic {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		r.release()
		return nil, common.ErrorNotFound
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.store.threads[ids[i]], r.store.threads[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	copy := *r.store.threads[ids[0]]
	return &copy, nil
}

func (r *memThreadRepo) HasPickedToday(ctx context.Context, recipientID string) (bool, error) {
	r.store.dataMu.Lock()
	_, ok := r.store.picked[recipientID]
	r.store.dataMu.Unlock()
	if ok {
		// End of this claim attempt: the service returns without calling
		// Claim, so the lock is released here.
		r.release()
	}
	return ok, nil
}

func (r *memThreadRepo) Claim(ctx context.Context, threadID, recipientID string) (*models.Thread, error) {
	defer r.release()

	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	t, ok := r.store.threads[threadID]
	if !ok || t.Status != models.StatusPublic {
		return nil, common.ErrorNoneAvailable
	}
	if _, dup := r.store.picked[recipientID]; dup {
		return nil, common.ErrorAlreadyAssignedToday
	}

	now := time.Now()
	t.Status = models.StatusPicked
	t.RecipientID = sql.NullString{String: recipientID, Valid: true}
	t.PickedAt = sql.NullTime{Time: now, Valid: true}
	t.IsRead = false
	t.UpdatedAt = now
	r.store.picked[recipientID] = threadID

	copy := *t
	return &copy, nil
}

func (r *memThreadRepo) SetLocalLockTimeout(ctx context.Context, d time.Duration) error {
	return nil
}

func (r *memThreadRepo) Create(ctx context.Context, thread *models.Thread) error {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	copy := *thread
	copy.CreatedAt = time.Now()
	copy.UpdatedAt = copy.CreatedAt
	r.store.threads[thread.ID] = &copy
	thread.CreatedAt = copy.CreatedAt
	thread.UpdatedAt = copy.UpdatedAt
	return nil
}

func (r *memThreadRepo) Get(ctx context.Context, id string) (*models.Thread, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	t, ok := r.store.threads[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copy := *t
	return &copy, nil
}

func (r *memThreadRepo) GetForUpdate(ctx context.Context, id string) (*models.Thread, error) {
	return r.Get(ctx, id)
}

func (r *memThreadRepo) MarkRead(ctx context.Context, threadID, recipientID string) (*models.Thread, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	t, ok := r.store.threads[threadID]
	if !ok || !t.RecipientID.Valid || t.RecipientID.String != recipientID || t.IsRead {
		return nil, common.ErrorNotFound
	}
	now := time.Now()
	t.IsRead = true
	t.ReadAt = sql.NullTime{Time: now, Valid: true}
	t.UpdatedAt = now
	copy := *t
	return &copy, nil
}

func (r *memThreadRepo) SelectCounts(ctx context.Context, userID string) (*threads.Counts, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	c := &threads.Counts{}
	for _, t := range r.store.threads {
		if t.SenderID == userID {
			c.Sent++
		}
		if t.RecipientID.Valid && t.RecipientID.String == userID {
			c.Received++
			if !t.IsRead {
				c.Unread++
			}
		}
	}
	if id, ok := r.store.picked[userID]; ok && id != "" {
		c.AssignedToday = true
		c.ReceivedToday++
	}
	return c, nil
}

func (r *memThreadRepo) SelectLatestUnread(ctx context.Context, recipientID string, limit int) ([]models.Thread, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	var result []models.Thread
	for _, t := range r.store.threads {
		if t.RecipientID.Valid && t.RecipientID.String == recipientID && !t.IsRead {
			result = append(result, *t)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *memThreadRepo) SelectBox(ctx context.Context, kind models.BoxKind, userID string, limit, offset int) ([]models.Thread, error) {
	return nil, nil
}

type memAttachmentRepo struct{}

func (r *memAttachmentRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	return nil
}

func (r *memAttachmentRepo) SelectByThread(ctx context.Context, threadID string) ([]models.Attachment, error) {
	return nil, nil
}
