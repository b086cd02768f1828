// Package turn drives one chat turn end to end: input resolution, persona and
// prompt composition, history, reply production, synthesis and persistence.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/metrics"
	"github.com/fluentpal/tutor/backend/internal/model/chat"
	"github.com/fluentpal/tutor/backend/internal/model/lesson"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
	"github.com/fluentpal/tutor/backend/internal/service/ai"
	chatservice "github.com/fluentpal/tutor/backend/internal/service/chat"
)

var (
	ErrEmptyInput          = errors.New("a message or an audio recording is required")
	ErrTranscriptionFailed = errors.New("could not transcribe audio")
	ErrModelUnavailable    = errors.New("language model not configured")
)

const (
	titleRunes     = 30
	persistTimeout = 10 * time.Second
)

// Speech is the set of speech capabilities a turn uses.
type Speech interface {
	Transcribe(ctx context.Context, audio speechmodel.AudioInput) (*speechmodel.Transcription, error)
	ShouldAssess(language string) bool
	Assess(ctx context.Context, audio []byte, referenceText, language string) *speechmodel.PronunciationAssessment
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Responder opens a streamed model reply.
type Responder interface {
	StreamReply(ctx context.Context, system string, history []*schema.Message, query string) (*schema.StreamReader[*schema.Message], error)
}

// ProgressRecorder applies gamification after a turn.
type ProgressRecorder interface {
	RecordTurn(ctx context.Context, userID string, assessment *speechmodel.PronunciationAssessment) error
}

// Identity is the caller as seen by the auth gate. An empty UserID is anonymous.
type Identity struct {
	UserID string
}

// Authenticated reports whether the caller has a user identity.
func (i Identity) Authenticated() bool { return i.UserID != "" }

// Request is one inbound turn.
type Request struct {
	Message   string                  `json:"message"`
	Audio     *speechmodel.AudioInput `json:"-"`
	SessionID string                  `json:"sessionId"`
	Persona   string                  `json:"persona"`
	History   string                  `json:"history"`
}

// Deps are the collaborators of an Orchestrator. Responder and Progress may be nil.
type Deps struct {
	Chats     chatservice.Store
	Personas  persona.Store
	Lessons   *lesson.Registry
	Speech    Speech
	Responder Responder
	Progress  ProgressRecorder
	Metrics   *metrics.Metrics
}

// Config tunes an Orchestrator.
type Config struct {
	MinSpeechChars int
	DefaultPersona string
}

// Orchestrator prepares and streams chat turns. It holds no per-turn state.
type Orchestrator struct {
	deps       Deps
	cfg        Config
	background func(func())
}

// New builds an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.DefaultPersona == "" {
		cfg.DefaultPersona = persona.DefaultID
	}
	if cfg.MinSpeechChars <= 0 {
		cfg.MinSpeechChars = DefaultMinSpeechChars
	}
	return &Orchestrator{
		deps:       deps,
		cfg:        cfg,
		background: func(f func()) { go f() },
	}
}

// WithBackground replaces the runner used for gamification updates.
func (o *Orchestrator) WithBackground(run func(func())) *Orchestrator {
	o.background = run
	return o
}

// Turn is a prepared turn ready to stream.
type Turn struct {
	o           *Orchestrator
	identity    Identity
	session     *chat.Session
	input       string
	transcribed bool
	assessment  *speechmodel.PronunciationAssessment
	persona     persona.Persona
	producer    ReplyProducer
	log         *log.Entry
}

// SessionID returns the resolved session, or "" for anonymous turns.
func (t *Turn) SessionID() string {
	if t.session == nil {
		return ""
	}
	return t.session.ID
}

// Input returns the resolved user text.
func (t *Turn) Input() string { return t.input }

// Path reports which reply path the turn takes.
func (t *Turn) Path() string { return t.producer.Path() }

// Prepare resolves input, session, persona, prompt and history, and records the
// user message. Errors returned here happen before any event is sent.
func (o *Orchestrator) Prepare(ctx context.Context, id Identity, req Request) (*Turn, error) {
	t := &Turn{o: o, identity: id}
	entry := log.WithField("user", id.UserID)

	// input
	var language string
	if !req.Audio.Empty() {
		tr, err := o.deps.Speech.Transcribe(ctx, *req.Audio)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		if tr == nil || strings.TrimSpace(tr.Text) == "" {
			return nil, ErrTranscriptionFailed
		}
		t.input = strings.TrimSpace(tr.Text)
		t.transcribed = true
		language = tr.Language
	} else {
		t.input = strings.TrimSpace(req.Message)
		if t.input == "" {
			return nil, ErrEmptyInput
		}
	}

	// pronunciation
	if t.transcribed {
		t.assessment = o.assess(ctx, req.Audio.Data, t.input, language)
	}

	// session
	if id.Authenticated() {
		session, err := o.resolveSession(ctx, id.UserID, req.SessionID, t.input)
		if err != nil {
			return nil, err
		}
		t.session = session
		entry = entry.WithField("session", session.ID)
	}

	// persona, lesson mode, system prompt
	choice := resolvePersona(o.deps.Personas, personaInput{
		requested: strings.TrimSpace(req.Persona),
		session:   t.session,
		defaultID: o.cfg.DefaultPersona,
	})
	t.persona = choice.persona

	starter, isStarter := o.deps.Lessons.Match(t.input)

	if t.session != nil {
		meta := map[string]string{}
		if choice.persist {
			meta[chat.MetaPersona] = choice.persona.ID
		}
		if isStarter {
			meta[chat.MetaMode] = starter.Mode
		}
		if len(meta) > 0 {
			updated, err := o.deps.Chats.UpdateSessionMetadata(ctx, t.session.ID, meta)
			if err != nil {
				return nil, fmt.Errorf("update session metadata: %w", err)
			}
			t.session = &updated
		}
	}

	var fragment string
	if t.session != nil {
		if l, ok := o.deps.Lessons.FindByMode(t.session.Mode()); ok {
			fragment = l.SystemPrompt
		}
	}
	system := ai.ComposeSystemPrompt(t.persona.SystemPrompt, fragment, t.assessment)

	// history, loaded before the current message is stored
	var history []*schema.Message
	if t.session != nil {
		stored, err := o.deps.Chats.ListMessages(ctx, t.session.ID)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		history = ai.HistoryMessages(stored)
	} else {
		history = ParseClientHistory(req.History)
	}

	// user message, then gamification in the background
	if t.session != nil {
		if _, err := o.deps.Chats.AppendMessage(ctx, t.session.ID, chat.RoleUser, t.input); err != nil {
			return nil, fmt.Errorf("save user message: %w", err)
		}
		o.recordProgress(id.UserID, t.assessment)
	}

	if isStarter {
		t.producer = CannedReply{Text: starter.Response}
	} else {
		query := t.input
		t.producer = StreamedReply{
			MinSpeechChars: o.cfg.MinSpeechChars,
			Source: func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
				if o.deps.Responder == nil {
					return nil, ErrModelUnavailable
				}
				return o.deps.Responder.StreamReply(ctx, system, history, query)
			},
		}
	}

	t.log = entry.WithFields(log.Fields{
		"persona":        t.persona.ID,
		"persona_source": choice.source,
		"path":           t.producer.Path(),
	})
	t.log.Debug("turn prepared")
	return t, nil
}

func (o *Orchestrator) assess(ctx context.Context, audio []byte, text, language string) *speechmodel.PronunciationAssessment {
	if !o.deps.Speech.ShouldAssess(language) {
		o.deps.Metrics.RecordAssessment("skipped")
		return nil
	}
	a := o.deps.Speech.Assess(ctx, audio, text, language)
	if a == nil {
		o.deps.Metrics.RecordAssessment("unavailable")
		return nil
	}
	o.deps.Metrics.RecordAssessment("ok")
	return a
}

// resolveSession reuses the caller's session when the id names one they own and
// creates a new one otherwise. "new" and "null" always create.
func (o *Orchestrator) resolveSession(ctx context.Context, owner, requested, text string) (*chat.Session, error) {
	id := strings.TrimSpace(requested)
	if id != "" && id != "new" && id != "null" {
		session, err := o.deps.Chats.GetSession(ctx, id, owner)
		if err == nil {
			return &session, nil
		}
		if !errors.Is(err, chatservice.ErrSessionNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
		log.WithFields(log.Fields{"user": owner, "session": id}).Debug("session not found, starting a new one")
	}

	session, err := o.deps.Chats.CreateSession(ctx, owner, sessionTitle(text))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

func sessionTitle(text string) string {
	runes := []rune(text)
	if len(runes) > titleRunes {
		runes = runes[:titleRunes]
	}
	return string(runes)
}

func (o *Orchestrator) recordProgress(userID string, assessment *speechmodel.PronunciationAssessment) {
	if o.deps.Progress == nil {
		return
	}
	o.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := o.deps.Progress.RecordTurn(ctx, userID, assessment); err != nil {
			o.deps.Metrics.RecordProgressFailure()
			log.WithError(err).WithField("user", userID).Warn("progress update failed")
		}
	})
}

// Stream produces the reply and pushes every event to em, ending with Done
// whatever happens. The returned error is the first delivery failure, if any.
func (t *Turn) Stream(ctx context.Context, em Emitter) error {
	started := time.Now()
	outcome := "ok"
	defer func() {
		t.o.deps.Metrics.RecordTurn(t.producer.Path(), outcome, time.Since(started))
	}()

	deliveryErr := t.stream(ctx, em, &outcome)
	if err := em.Done(); err != nil && deliveryErr == nil {
		deliveryErr = err
	}
	if deliveryErr != nil {
		outcome = "disconnected"
	}
	return deliveryErr
}

func (t *Turn) stream(ctx context.Context, em Emitter, outcome *string) error {
	var preamble []Event
	if t.session != nil {
		preamble = append(preamble, sessionEvent(t.session.ID))
	}
	if t.transcribed {
		preamble = append(preamble, transcriptionEvent(t.input))
	}
	if t.assessment != nil {
		preamble = append(preamble, pronunciationEvent(t.assessment))
	}
	for _, ev := range preamble {
		if err := em.Emit(ev); err != nil {
			return err
		}
	}

	var deliveryErr error
	yield := func(seg Segment) error {
		var audio []byte
		if seg.Speech != "" {
			a, err := t.o.deps.Speech.Synthesize(ctx, seg.Speech, t.persona.Voice)
			if err != nil {
				t.o.deps.Metrics.RecordSynthesisFailure()
				t.log.WithError(err).Warn("synthesis failed, sending text only")
			} else {
				audio = a
			}
		}
		if err := em.Emit(segmentEvent(seg.Raw, audio)); err != nil {
			deliveryErr = err
			return err
		}
		return nil
	}

	full, err := t.producer.Produce(ctx, yield)
	if err != nil && deliveryErr == nil {
		*outcome = "error"
		t.log.WithError(err).Warn("reply production failed")
		deliveryErr = em.Emit(errorEvent(err.Error()))
	}

	t.persistReply(ctx, full)
	return deliveryErr
}

// persistReply stores the assistant message on a context that survives a client
// disconnect.
func (t *Turn) persistReply(ctx context.Context, full string) {
	if t.session == nil || full == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if _, err := t.o.deps.Chats.AppendMessage(ctx, t.session.ID, chat.RoleAssistant, full); err != nil {
		t.log.WithError(err).Error("failed to save assistant message")
	}
}
