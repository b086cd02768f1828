package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluentpal/tutor/backend/internal/model/lesson"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

// Handler lists tutor personas and starter lessons.
type Handler struct {
	personas persona.Store
	lessons  *lesson.Registry
}

// New creates a persona handler.
func New(personas persona.Store, lessons *lesson.Registry) *Handler {
	return &Handler{
		personas: personas,
		lessons:  lessons,
	}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/lessons", h.handleListLessons)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.lessons.List())
}
