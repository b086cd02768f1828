package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/config"
	"github.com/fluentpal/tutor/backend/internal/handler"
	"github.com/fluentpal/tutor/backend/internal/metrics"
	"github.com/fluentpal/tutor/backend/internal/model/lesson"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
	progressmodel "github.com/fluentpal/tutor/backend/internal/model/progress"
	"github.com/fluentpal/tutor/backend/internal/service/ai"
	"github.com/fluentpal/tutor/backend/internal/service/chat"
	"github.com/fluentpal/tutor/backend/internal/service/progress"
	"github.com/fluentpal/tutor/backend/internal/service/speech"
	"github.com/fluentpal/tutor/backend/internal/service/turn"
	"github.com/fluentpal/tutor/backend/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	configureLogging(cfg.Log)

	personaStore := persona.NewMemoryStore(persona.Seed())
	lessons := lesson.NewRegistry(lesson.Seed())
	m := metrics.New("tutor")

	chatStore, progressStore, closeStore := openStores(ctx, cfg.Store)
	defer closeStore()

	// AI service
	var responder turn.Responder
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.WithError(err).Warn("failed to initialize AI service, chat replies will report an error")
		} else {
			responder = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	// Speech service
	speechService := speech.NewService(cfg.Speech)
	if !cfg.Speech.OpenAIEnabled() {
		log.Warn("OPENAI_API_KEY not set, audio turns will fail to transcribe")
	}
	if !cfg.Speech.AzureEnabled() {
		log.Println("Azure speech not configured, pronunciation assessment disabled")
	}
	if cfg.Redis.Enabled() && speechService.Synthesizer() != nil {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, synthesized audio will not be cached")
		} else {
			speechService.WithSynthesizer(speech.NewCachedSynthesizer(
				speechService.Synthesizer(), speech.NewRedisAudioCache(client), cfg.Redis.AudioTTL))
			log.WithField("addr", cfg.Redis.Addr).Println("audio cache enabled")
		}
	}

	updater := progress.NewUpdater(progressStore, chatStore, progress.WithAward(progressmodel.Award{
		XP:      cfg.Progress.XPPerTurn,
		Minutes: cfg.Progress.MinutesPerTurn,
	}))

	orchestrator := turn.New(turn.Deps{
		Chats:     chatStore,
		Personas:  personaStore,
		Lessons:   lessons,
		Speech:    speechService,
		Responder: responder,
		Progress:  updater,
		Metrics:   m,
	}, turn.Config{
		MinSpeechChars: cfg.Turn.MinSpeechChars,
		DefaultPersona: cfg.Turn.DefaultPersona,
	})

	if cfg.Auth.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, every caller is anonymous")
	}

	router := handler.NewRouter(handler.Deps{
		Personas:       personaStore,
		Lessons:        lessons,
		Chats:          chatStore,
		Turns:          orchestrator,
		Progress:       updater,
		Metrics:        m,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	startServer(ctx, cfg.Server, router)
}

// openStores picks Postgres when DATABASE_URL is set and process memory otherwise.
func openStores(ctx context.Context, cfg config.StoreConfig) (chat.Store, progress.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, conversations and progress are kept in memory")
		return chat.NewMemoryStore(), progress.NewMemoryStore(), func() {}
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return store, store, func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}
}

func configureLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("tutor backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
