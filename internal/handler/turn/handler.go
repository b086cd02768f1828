// Package turn exposes chat turns over SSE and WebSocket.
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/middleware"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
	turnservice "github.com/fluentpal/tutor/backend/internal/service/turn"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

const (
	maxUploadBytes = 32 << 20
	maxAudioBytes  = 25 << 20
)

// Orchestrator prepares turns; the returned Turn streams itself.
type Orchestrator interface {
	Prepare(ctx context.Context, id turnservice.Identity, req turnservice.Request) (*turnservice.Turn, error)
}

// Handler serves POST /chat and GET /chat/ws.
type Handler struct {
	orch      Orchestrator
	validate  *validator.Validate
	jwtSecret string
	origins   []string

	readTimeout time.Duration
}

// New creates a turn handler. jwtSecret verifies the ?token= query on websocket
// upgrades, where browsers cannot set an Authorization header.
func New(orch Orchestrator, jwtSecret string, allowedOrigins []string) *Handler {
	return &Handler{
		orch:      orch,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		jwtSecret: jwtSecret,
		origins:   allowedOrigins,

		readTimeout: wsReadTimeout,
	}
}

// RegisterRoutes registers the turn routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/ws", h.handleWebSocket)
}

// chatRequest is the JSON body of a text turn; multipart uploads use the same field names.
type chatRequest struct {
	Message   string `json:"message" validate:"max=4000"`
	SessionID string `json:"sessionId" validate:"max=64"`
	Persona   string `json:"persona" validate:"max=64"`
	History   string `json:"history" validate:"max=200000"`
}

func (c chatRequest) toTurn(audio *speechmodel.AudioInput) turnservice.Request {
	return turnservice.Request{
		Message:   c.Message,
		Audio:     audio,
		SessionID: c.SessionID,
		Persona:   c.Persona,
		History:   c.History,
	}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := turnservice.Identity{UserID: middleware.UserID(r.Context())}
	t, err := h.orch.Prepare(r.Context(), id, req)
	if err != nil {
		status, message := prepareError(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("user", id.UserID).Error("turn rejected")
		}
		utils.RespondError(w, status, message)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := t.Stream(r.Context(), &sseEmitter{w: w, flusher: flusher}); err != nil {
		log.WithError(err).WithField("session", t.SessionID()).Debug("client went away mid-turn")
	}
}

func (h *Handler) parseRequest(r *http.Request) (turnservice.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.parseMultipart(r)
	}

	var body chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
		return turnservice.Request{}, errors.New("invalid request body")
	}
	if err := h.validate.Struct(body); err != nil {
		return turnservice.Request{}, fmt.Errorf("invalid request: %s", validationMessage(err))
	}
	return body.toTurn(nil), nil
}

func (h *Handler) parseMultipart(r *http.Request) (turnservice.Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return turnservice.Request{}, fmt.Errorf("failed to parse multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	body := chatRequest{
		Message:   r.FormValue("message"),
		SessionID: r.FormValue("sessionId"),
		Persona:   r.FormValue("persona"),
		History:   r.FormValue("history"),
	}
	if err := h.validate.Struct(body); err != nil {
		return turnservice.Request{}, fmt.Errorf("invalid request: %s", validationMessage(err))
	}

	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return body.toTurn(nil), nil
	}
	if err != nil {
		return turnservice.Request{}, fmt.Errorf("invalid audio upload: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		return turnservice.Request{}, fmt.Errorf("read audio upload: %v", err)
	}
	if len(data) > maxAudioBytes {
		return turnservice.Request{}, errors.New("audio file too large")
	}
	return body.toTurn(&speechmodel.AudioInput{Data: data, Filename: header.Filename}), nil
}

func prepareError(err error) (int, string) {
	switch {
	case errors.Is(err, turnservice.ErrEmptyInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, turnservice.ErrTranscriptionFailed):
		return http.StatusInternalServerError, turnservice.ErrTranscriptionFailed.Error()
	default:
		return http.StatusInternalServerError, "failed to start chat turn"
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}

type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (e *sseEmitter) Emit(ev turnservice.Event) error {
	return utils.SendSSEChunk(e.w, e.flusher, ev)
}

func (e *sseEmitter) Done() error {
	return utils.SendSSEDone(e.w, e.flusher)
}
