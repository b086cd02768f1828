package progress

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/middleware"
	progressmodel "github.com/fluentpal/tutor/backend/internal/model/progress"
	progressservice "github.com/fluentpal/tutor/backend/internal/service/progress"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

// Service is the slice of the progress updater the handler needs.
type Service interface {
	Summary(ctx context.Context, userID string) (progressservice.Summary, error)
	AddProgress(ctx context.Context, userID string, xp int, minutes float64) (progressmodel.Profile, error)
}

// Handler serves the caller's gamification profile.
type Handler struct {
	svc      Service
	validate *validator.Validate
}

// New creates a progress handler.
func New(svc Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes registers the progress routes. Both require a user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireUser).Get("/progress", h.handleSummary)
	r.With(middleware.RequireUser).Post("/progress", h.handleAdd)
}

type addProgressRequest struct {
	XP      int     `json:"xp" validate:"gte=0,lte=1000"`
	Minutes float64 `json:"time" validate:"gte=0,lte=240"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	summary, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user", userID).Error("[progress] summary failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload addProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "xp must be 0-1000 and time 0-240 minutes")
		return
	}

	userID := middleware.UserID(r.Context())
	profile, err := h.svc.AddProgress(r.Context(), userID, payload.XP, payload.Minutes)
	if err != nil {
		log.WithError(err).WithField("user", userID).Error("[progress] update failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to update progress")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
