package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// Config aggregates every configuration section of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Speech   speechmodel.SpeechConfig
	Store    StoreConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Turn     TurnConfig
	Progress ProgressConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	turn, err := loadTurnConfig()
	if err != nil {
		return nil, err
	}

	progress, err := loadProgressConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Speech:   speech,
		Store:    StoreConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Redis:    redis,
		Auth:     AuthConfig{JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET"))},
		Turn:     turn,
		Progress: progress,
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig describes the chat model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func loadSpeechConfig() (speechmodel.SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return speechmodel.SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil && *timeout > 0 {
		timeoutSeconds = *timeout
	}

	skip := splitList(getEnvOrDefault("TURN_SKIP_ASSESSMENT_LANGUAGES", "es,spanish,español"))
	for i := range skip {
		skip[i] = strings.ToLower(skip[i])
	}

	return speechmodel.SpeechConfig{
		OpenAIKey:               strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:           getEnvOrDefault("OPENAI_BASE_URL", ""),
		WhisperModel:            getEnvOrDefault("WHISPER_MODEL", "whisper-1"),
		TTSModel:                getEnvOrDefault("OPENAI_TTS_MODEL", "tts-1"),
		TTSVoice:                getEnvOrDefault("OPENAI_TTS_VOICE", "nova"),
		AzureKey:                strings.TrimSpace(os.Getenv("AZURE_SPEECH_KEY")),
		AzureRegion:             strings.TrimSpace(os.Getenv("AZURE_SPEECH_REGION")),
		AzureOutputFormat:       getEnvOrDefault("AZURE_TTS_FORMAT", "audio-24khz-48kbitrate-mono-mp3"),
		SkipAssessmentLanguages: skip,
		FFmpegPath:              getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		Timeout:                 timeoutSeconds,
	}, nil
}

// StoreConfig selects the conversation/profile store. An empty DatabaseURL
// keeps everything in memory.
type StoreConfig struct {
	DatabaseURL string
}

// RedisConfig configures the synthesized-audio cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	AudioTTL time.Duration
}

// Enabled reports whether a redis address was supplied.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return RedisConfig{}, err
	}

	ttl := 24 * time.Hour
	if raw := strings.TrimSpace(os.Getenv("AUDIO_CACHE_TTL")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid AUDIO_CACHE_TTL value %q: %w", raw, err)
		}
		ttl = parsed
	}

	cfg := RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: os.Getenv("REDIS_PASSWORD"),
		AudioTTL: ttl,
	}
	if db != nil {
		cfg.DB = *db
	}
	return cfg, nil
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

// TurnConfig tunes the chat-turn orchestrator.
type TurnConfig struct {
	MinSpeechChars int
	DefaultPersona string
}

func loadTurnConfig() (TurnConfig, error) {
	minChars, err := parseOptionalIntEnv("TURN_MIN_SPEECH_CHARS")
	if err != nil {
		return TurnConfig{}, err
	}

	cfg := TurnConfig{
		MinSpeechChars: 50,
		DefaultPersona: getEnvOrDefault("TURN_DEFAULT_PERSONA", "friendly"),
	}
	if minChars != nil {
		if *minChars < 1 {
			return TurnConfig{}, fmt.Errorf("invalid TURN_MIN_SPEECH_CHARS value %d: must be positive", *minChars)
		}
		cfg.MinSpeechChars = *minChars
	}
	return cfg, nil
}

// ProgressConfig holds the per-turn gamification award.
type ProgressConfig struct {
	XPPerTurn      int
	MinutesPerTurn float64
}

func loadProgressConfig() (ProgressConfig, error) {
	xp, err := parseOptionalIntEnv("PROGRESS_XP_PER_TURN")
	if err != nil {
		return ProgressConfig{}, err
	}

	minutes, err := parseOptionalFloatEnv("PROGRESS_MINUTES_PER_TURN")
	if err != nil {
		return ProgressConfig{}, err
	}

	cfg := ProgressConfig{XPPerTurn: 10, MinutesPerTurn: 0.5}
	if xp != nil {
		cfg.XPPerTurn = *xp
	}
	if minutes != nil {
		cfg.MinutesPerTurn = *minutes
	}
	return cfg, nil
}

// LogConfig controls the logrus level and formatter.
type LogConfig struct {
	Level  string
	Format string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
