package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/rest"
)

type SessionDTO struct {
	Uid          string `json:"uid"`
	TroiUsername string `json:"troiUsername"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Creating new session")

	var createRequest struct {
		TroiUsername string `json:"troiUsername"`
		TroiToken    string `json:"troiToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&createRequest); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			return
		}
		return
	}
	if createRequest.TroiUsername == "" || createRequest.TroiToken == "" {
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Missing troiUsername or troiToken",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			return
		}
		return
	}

	created, err := h.service.CreateSession(r.Context(), createRequest.TroiUsername, createRequest.TroiToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sessionToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	current, err := h.service.CurrentSession(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			http.Error(w, "No session", http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(sessionToDTO(current)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	log.Trace("Deleting current session")

	uid, err := CurrentUid(r.Context())
	if err != nil {
		http.Error(w, "No session", http.StatusUnauthorized)
		return
	}
	if err := h.service.EvictSession(r.Context(), uid); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionToDTO(s Session) SessionDTO {
	var createdAt string
	if !s.CreatedAt.IsZero() {
		createdAt = s.CreatedAt.Format(time.RFC3339)
	}
	return SessionDTO{
		Uid:          s.Uid,
		TroiUsername: s.TroiUsername,
		CreatedAt:    createdAt,
	}
}
