package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"reviewsync/internal/auth"
	"reviewsync/internal/client"
	"reviewsync/internal/pending"
)

type AuthHandler struct {
	Clients *client.Service
	JWT     *auth.JWT
	Pending *pending.Registry
}

type loginReq struct {
	Number   int    `json:"number"`
	Password string `json:"password"`
	ChatID   int64  `json:"chat_id"`
}

// Login checks the client number and password, binds the chat session, and
// issues a token. A re-login simply rebinds the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Number <= 0 || req.Password == "" || req.ChatID == 0 {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	c, err := h.Clients.ByNumber(r.Context(), req.Number)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	// Imported clients have no password until an admin sets one.
	if c.PasswordHash == "" || !auth.ComparePassword(c.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.Clients.Authorize(r.Context(), c.ID, req.ChatID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	token, err := h.JWT.Sign(c.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token": token,
	})
}

// Logout clears the session binding and drops any staged changes.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cid, _ := auth.ClientIDFromContext(r.Context())
	if err := h.Clients.Unauthorize(r.Context(), cid); err != nil {
		if !errors.Is(err, client.ErrNotFound) {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}
	h.Pending.Reset(cid)
	w.WriteHeader(http.StatusNoContent)
}
