package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fluentpal/tutor/backend/internal/handler/chat"
	"github.com/fluentpal/tutor/backend/internal/handler/persona"
	"github.com/fluentpal/tutor/backend/internal/handler/progress"
	"github.com/fluentpal/tutor/backend/internal/handler/turn"
	"github.com/fluentpal/tutor/backend/internal/metrics"
	middlewarePkg "github.com/fluentpal/tutor/backend/internal/middleware"
	lessonModel "github.com/fluentpal/tutor/backend/internal/model/lesson"
	personaModel "github.com/fluentpal/tutor/backend/internal/model/persona"
	chatService "github.com/fluentpal/tutor/backend/internal/service/chat"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Personas       personaModel.Store
	Lessons        *lessonModel.Registry
	Chats          chatService.Store
	Turns          turn.Orchestrator
	Progress       progress.Service
	Metrics        *metrics.Metrics
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.Metrics(deps.Metrics))
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Auth(deps.JWTSecret))

		persona.New(deps.Personas, deps.Lessons).RegisterRoutes(api)
		chat.New(deps.Chats).RegisterRoutes(api)
		turn.New(deps.Turns, deps.JWTSecret, deps.AllowedOrigins).RegisterRoutes(api)
		if deps.Progress != nil {
			progress.New(deps.Progress).RegisterRoutes(api)
		}
	})

	return r
}
