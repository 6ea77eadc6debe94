package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"reviewsync/internal/auth"
	"reviewsync/internal/client"
	"reviewsync/internal/pending"
	"reviewsync/internal/review"

	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	Clients    *client.Service
	Reviews    *review.Store
	Pending    *pending.Registry
	Aggregator *pending.Aggregator
}

// Platforms lists the client's platforms with new-review counts.
func (h *ReviewHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	rows, err := h.Reviews.PlatformsWithNewCounts(r.Context(), cid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

type reviewDTO struct {
	ID        uint64  `json:"id"`
	Text      string  `json:"text"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	PhotoLink *string `json:"photo_link"`
}

// NewReviews lists the still-new reviews on one platform.
func (h *ReviewHandler) NewReviews(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil {
		http.Error(w, "invalid platform number", http.StatusBadRequest)
		return
	}

	p, err := h.Reviews.PlatformByNumber(r.Context(), cid, num)
	if err != nil {
		http.Error(w, "platform not found", http.StatusNotFound)
		return
	}

	rows, err := h.Reviews.NewReviews(r.Context(), cid, p.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]reviewDTO, 0, len(rows))
	for _, rv := range rows {
		out = append(out, reviewDTO{
			ID:        rv.ID,
			Text:      rv.Text,
			Date:      rv.Date,
			Status:    rv.Status,
			PhotoLink: rv.PhotoLink,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Stats reports the client's own counters.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	st, err := h.Clients.Stats(r.Context(), cid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// Stage appends one change to the session's staged list. Nothing touches the
// database until commit.
func (h *ReviewHandler) Stage(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	var c pending.Change
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	switch c.Kind {
	case pending.KindInsert:
		if c.Insert == nil || strings.TrimSpace(c.Insert.Text) == "" || c.Insert.PlatformNumber <= 0 {
			http.Error(w, "invalid insert", http.StatusBadRequest)
			return
		}
	case pending.KindUpdate:
		if c.ReviewID == 0 || (c.Field != pending.FieldStatus && c.Field != pending.FieldText) {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
	case pending.KindUpdateMultiple:
		if c.ReviewID == 0 || c.Updates["photo_link"] == "" {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "unknown change kind", http.StatusBadRequest)
		return
	}

	l := h.Pending.Get(cid)
	l.Stage(c)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"staged": l.Len()})
}

// List shows the staged changes without applying them.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	changes := h.Pending.Get(cid).Changes()
	if changes == nil {
		changes = []pending.Change{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(changes)
}

// Commit applies the whole staged list in order and returns the summary.
func (h *ReviewHandler) Commit(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	lines, err := h.Aggregator.ApplyAll(r.Context(), cid, h.Pending.Get(cid))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if lines == nil {
		lines = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"changes": lines})
}

// Discard drops the staged list.
func (h *ReviewHandler) Discard(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())
	h.Pending.Reset(cid)
	w.WriteHeader(http.StatusNoContent)
}

type photoPackReq struct {
	FolderLink string `json:"folder_link"`
}

// PhotoPack records an uploaded image folder for a whole platform; the sync
// engine exports it to the sheet on its next cycle.
func (h *ReviewHandler) PhotoPack(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())

	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil {
		http.Error(w, "invalid platform number", http.StatusBadRequest)
		return
	}

	var req photoPackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.FolderLink = strings.TrimSpace(req.FolderLink)
	if req.FolderLink == "" {
		http.Error(w, "folder_link required", http.StatusBadRequest)
		return
	}

	p, err := h.Reviews.PlatformByNumber(r.Context(), cid, num)
	if err != nil {
		http.Error(w, "platform not found", http.StatusNotFound)
		return
	}

	pack := review.PhotoPack{ClientID: cid, PlatformID: p.ID, FolderLink: req.FolderLink}
	if err := h.Reviews.CreatePhotoPack(r.Context(), &pack); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": pack.ID})
}
