package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/middleware"
	chatService "github.com/fluentpal/tutor/backend/internal/service/chat"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

// Handler serves the caller's stored conversations.
type Handler struct {
	chats chatService.Store
}

// New creates a sessions handler.
func New(chats chatService.Store) *Handler {
	return &Handler{chats: chats}
}

// RegisterRoutes registers the session routes. All of them require a user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sr chi.Router) {
		sr.Use(middleware.RequireUser)
		sr.Get("/", h.handleListSessions)
		sr.Get("/{sessionID}", h.handleGetSession)
		sr.Delete("/{sessionID}", h.handleDeleteSession)
		sr.Get("/{sessionID}/messages", h.handleListMessages)
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chats.ListSessions(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chats.GetSession(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context()))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.DeleteSession(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserID(r.Context())); err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	// ownership check; ListMessages itself is not scoped by owner
	if _, err := h.chats.GetSession(ctx, sessionID, middleware.UserID(ctx)); err != nil {
		h.respondStoreError(w, err)
		return
	}
	messages, err := h.chats.ListMessages(ctx, sessionID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	log.WithError(err).Error("[sessions] store failure")
	utils.RespondError(w, http.StatusInternalServerError, "failed to load sessions")
}
