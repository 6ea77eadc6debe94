package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"reviewsync/internal/auth"
	"reviewsync/internal/client"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	Clients *client.Service
}

type createClientReq struct {
	Number   int    `json:"number"`
	Password string `json:"password"`
}

func (h *AdminHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Number <= 0 || len(req.Password) < 4 {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	id, err := h.Clients.Create(r.Context(), req.Number, hash)
	if err != nil {
		if errors.Is(err, client.ErrDuplicateNumber) {
			http.Error(w, "client number already exists", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

type patchClientReq struct {
	Number   *int    `json:"number"`
	Password *string `json:"password"`
}

// PatchClient renumbers a client and/or replaces the password. Number
// collisions are rejected without partial state.
func (h *AdminHandler) PatchClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req patchClientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Number == nil && req.Password == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	if _, err := h.Clients.ByID(r.Context(), id); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if req.Number != nil {
		if *req.Number <= 0 {
			http.Error(w, "invalid number", http.StatusBadRequest)
			return
		}
		if err := h.Clients.UpdateNumber(r.Context(), id, *req.Number); err != nil {
			if errors.Is(err, client.ErrDuplicateNumber) {
				http.Error(w, "client number already exists", http.StatusConflict)
				return
			}
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	if req.Password != nil {
		if len(*req.Password) < 4 {
			http.Error(w, "invalid password", http.StatusBadRequest)
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if err := h.Clients.UpdatePassword(r.Context(), id, hash); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClientStats reports a client's counters looked up by number.
func (h *AdminHandler) ClientStats(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		http.Error(w, "invalid number", http.StatusBadRequest)
		return
	}

	c, err := h.Clients.ByNumber(r.Context(), number)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	st, err := h.Clients.Stats(r.Context(), c.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}
