// Package httpapi is the thin HTTP JSON routing layer over the letter
// services. It validates transport-level input, maps sentinel errors to
// status codes, and never contains business logic.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/evenfall/nightpost/internal/common"
	"github.com/evenfall/nightpost/internal/logging"
	"github.com/evenfall/nightpost/internal/server/models"
	"github.com/evenfall/nightpost/internal/server/services"
)

type Handler struct {
	letters     *services.LetterService
	attachments *services.AttachmentService
	logger      logging.Logger
}

func NewHandler(letters *services.LetterService, attachments *services.AttachmentService, logger logging.Logger) *Handler {
	return &Handler{
		letters:     letters,
		attachments: attachments,
		logger:      logger.With("component", "httpapi"),
	}
}

type attachmentJSON struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Kind     string `json:"kind"`
}

type threadJSON struct {
	ID          string           `json:"id"`
	SenderID    string           `json:"sender_id"`
	RecipientID *string          `json:"recipient_id,omitempty"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	Status      string           `json:"status"`
	IsRead      bool             `json:"is_read"`
	PickedAt    *time.Time       `json:"picked_at,omitempty"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Attachments []attachmentJSON `json:"attachments,omitempty"`
}

func toThreadJSON(t *models.Thread, atts []models.Attachment) threadJSON {
	out := threadJSON{
		ID:        t.ID,
		SenderID:  t.SenderID,
		Title:     t.Title,
		Content:   t.Content,
		Status:    t.Status,
		IsRead:    t.IsRead,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.RecipientID.Valid {
		out.RecipientID = &t.RecipientID.String
	}
	if t.PickedAt.Valid {
		out.PickedAt = &t.PickedAt.Time
	}
	if t.ReadAt.Valid {
		out.ReadAt = &t.ReadAt.Time
	}
	for _, a := range atts {
		out.Attachments = append(out.Attachments, attachmentJSON{
			ID: a.ID, URL: a.URL, Filename: a.Filename, Kind: a.Kind,
		})
	}
	return out
}

func threadListJSON(ts []models.Thread) []threadJSON {
	out := make([]threadJSON, 0, len(ts))
	for i := range ts {
		out = append(out, toThreadJSON(&ts[i], nil))
	}
	return out
}

type statsJSON struct {
	TodayAssigned      bool         `json:"today_assigned"`
	TodayReceivedCount int          `json:"today_received_count"`
	UnreadCount        int          `json:"unread_count"`
	SentCount          int          `json:"sent_count"`
	ReceivedCount      int          `json:"received_count"`
	LatestUnread       []threadJSON `json:"latest_unread"`
}

func toStatsJSON(s *models.DailyStats) *statsJSON {
	if s == nil {
		return nil
	}
	return &statsJSON{
		TodayAssigned:      s.TodayAssigned,
		TodayReceivedCount: s.TodayReceivedCount,
		UnreadCount:        s.UnreadCount,
		SentCount:          s.SentCount,
		ReceivedCount:      s.ReceivedCount,
		LatestUnread:       threadListJSON(s.LatestUnread),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors onto HTTP status codes. Storage details
// never leak: anything unrecognized becomes a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrorForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrLockTimeout):
		// Transient contention: the client may retry.
		http.Error(w, "temporarily unavailable, retry", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

// Deliver handles POST /api/letters.
func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	senderID, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		RecipientID string `json:"recipient_id"`
		Attachments []struct {
			URL      string `json:"url"`
			Filename string `json:"filename"`
			Kind     string `json:"kind"`
		} `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	deliverReq := services.DeliverRequest{
		Title:       req.Title,
		Content:     req.Content,
		RecipientID: req.RecipientID,
	}
	for _, a := range req.Attachments {
		deliverReq.Attachments = append(deliverReq.Attachments, services.AttachmentInput{
			URL: a.URL, Filename: a.Filename, Kind: a.Kind,
		})
	}

	thread, atts, err := h.letters.Deliver(r.Context(), senderID, deliverReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toThreadJSON(thread, atts))
}

// AssignDaily handles POST /api/letters/assign. All three benign outcomes
// are 200 responses distinguished by the outcome field.
func (h *Handler) AssignDaily(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := userID(w, r)
	if !ok {
		return
	}

	result, err := h.letters.AssignDaily(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Outcome string      `json:"outcome"`
		Thread  *threadJSON `json:"thread,omitempty"`
		Stats   *statsJSON  `json:"stats"`
	}{
		Outcome: string(result.Outcome),
		Stats:   toStatsJSON(result.Stats),
	}
	if result.Thread != nil {
		t := toThreadJSON(result.Thread, nil)
		resp.Thread = &t
	}

	writeJSON(w, http.StatusOK, resp)
}

// Accept handles POST /api/letters/{id}/read.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := userID(w, r)
	if !ok {
		return
	}
	threadID := mux.Vars(r)["id"]

	thread, err := h.letters.Accept(r.Context(), threadID, recipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toThreadJSON(thread, nil))
}

// GetThread handles GET /api/letters/{id}.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	threadID := mux.Vars(r)["id"]

	thread, atts, err := h.letters.Get(r.Context(), threadID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toThreadJSON(thread, atts))
}

// Stats handles GET /api/letters/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := userID(w, r)
	if !ok {
		return
	}

	stats, err := h.letters.Stats(r.Context(), recipientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsJSON(stats))
}

// Box returns a handler for one of the fixed mailbox views.
func (h *Handler) Box(kind models.BoxKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			parsed, err := strconv.Atoi(p)
			if err != nil || parsed < 1 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsed
		}

		threads, err := h.letters.Box(r.Context(), kind, uid, page)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Box     string       `json:"box"`
			Page    int          `json:"page"`
			Threads []threadJSON `json:"threads"`
		}{kind.String(), page, threadListJSON(threads)})
	}
}

// PresignAttachment handles POST /api/attachments/presign.
func (h *Handler) PresignAttachment(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}

	key, url, err := h.attachments.PresignedPutURL(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "presign failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "upload_url": url})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
