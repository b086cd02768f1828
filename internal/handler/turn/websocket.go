package turn

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/middleware"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
	turnservice "github.com/fluentpal/tutor/backend/internal/service/turn"
	"github.com/fluentpal/tutor/backend/pkg/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 25 * time.Second
	wsMaxMessage   = 32 << 20
)

// wsRequest is one turn sent over the socket. Audio is base64 in JSON.
type wsRequest struct {
	chatRequest
	Audio         []byte `json:"audio"`
	AudioFilename string `json:"audioFilename" validate:"max=255"`
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// identity resolves the caller of an upgrade request. The auth middleware has
// already handled an Authorization header; ?token= is checked here.
func (h *Handler) identity(r *http.Request) (turnservice.Identity, bool) {
	if id := middleware.UserID(r.Context()); id != "" {
		return turnservice.Identity{UserID: id}, true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		return turnservice.Identity{}, true
	}
	userID, err := middleware.VerifyToken("Bearer "+token, h.jwtSecret)
	if err != nil {
		return turnservice.Identity{}, false
	}
	return turnservice.Identity{UserID: userID}, true
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	entry := log.WithField("user", id.UserID)
	entry.Debug("[websocket] connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	em := &wsEmitter{conn: conn}
	go em.pingLoop(ctx)

	for {
		var msg wsRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				entry.WithError(err).Warn("[websocket] read error")
			}
			return
		}
		if err := h.serveTurn(ctx, id, em, msg); err != nil {
			entry.WithError(err).Debug("[websocket] client went away mid-turn")
			return
		}
		// Pongs are not read while a turn streams; the idle window starts now.
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// serveTurn runs one turn on the socket. Errors before streaming are sent as an
// error event followed by [DONE], so every request gets a terminated reply.
func (h *Handler) serveTurn(ctx context.Context, id turnservice.Identity, em *wsEmitter, msg wsRequest) error {
	if err := h.validate.Struct(msg); err != nil {
		return em.fail("invalid request: " + validationMessage(err))
	}

	var audio *speechmodel.AudioInput
	if len(msg.Audio) > 0 {
		audio = &speechmodel.AudioInput{Data: msg.Audio, Filename: msg.AudioFilename}
	}

	t, err := h.orch.Prepare(ctx, id, msg.toTurn(audio))
	if err != nil {
		_, message := prepareError(err)
		return em.fail(message)
	}
	return t.Stream(ctx, em)
}

type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(ev turnservice.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return e.conn.WriteJSON(ev)
}

func (e *wsEmitter) Done() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return e.conn.WriteMessage(websocket.TextMessage, []byte(utils.SSEDone))
}

func (e *wsEmitter) fail(message string) error {
	if err := e.Emit(turnservice.Event{Type: turnservice.EventError, Message: message}); err != nil {
		return err
	}
	return e.Done()
}

func (e *wsEmitter) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			err := e.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			e.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
