package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/nutriplanner/adapters/hasher"
	handler "github.com/satriahrh/nutriplanner/adapters/http"
	"github.com/satriahrh/nutriplanner/adapters/llm"
	"github.com/satriahrh/nutriplanner/adapters/session"
	"github.com/satriahrh/nutriplanner/adapters/speech"
	"github.com/satriahrh/nutriplanner/adapters/tts"
	"github.com/satriahrh/nutriplanner/adapters/websocket"
	"github.com/satriahrh/nutriplanner/config"
	"github.com/satriahrh/nutriplanner/domain"
	"github.com/satriahrh/nutriplanner/usecase"
	"github.com/satriahrh/nutriplanner/utils/log"
	"github.com/satriahrh/nutriplanner/utils/retry"
)

func main() {
	gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.With().Fatal("loading config", zap.Error(err))
	}
	if err := log.Configure(cfg.Log.Level, cfg.Log.File); err != nil {
		log.With().Fatal("configuring logger", zap.Error(err))
	}
	defer log.Sync()

	ctx := context.Background()

	model, err := newLlm(ctx, cfg)
	if err != nil {
		log.With().Fatal("creating completion client", zap.Error(err))
	}

	var transcriber domain.Transcriber
	if cfg.Speech.Enabled {
		googleSpeech, err := speech.NewGoogleSpeech(ctx, speech.Config{
			Language:   cfg.Speech.Language,
			SampleRate: cfg.Speech.SampleRate,
			Encoding:   cfg.Speech.Encoding,
			Timeout:    cfg.Speech.Timeout,
		})
		if err != nil {
			log.With().Fatal("creating speech client", zap.Error(err))
		}
		defer googleSpeech.Close()
		transcriber = googleSpeech
	}

	var synthesizer domain.Synthesizer
	if cfg.TTS.Enabled {
		googleTTS, err := tts.NewGoogleTTS(ctx, cfg.TTS.Language, cfg.TTS.VoiceGender)
		if err != nil {
			log.With().Fatal("creating tts client", zap.Error(err))
		}
		defer googleTTS.Close()
		synthesizer = googleTTS
	}

	store := session.NewMemoryStore()
	insights := usecase.NewInsightsService(model)
	planner := usecase.NewMealPlanService(model, transcriber, store)

	sessions := handler.NewSessions(store, sessionSecret(cfg.Session.Secret), cfg.Session.TTL, cfg.Session.CookieName, cfg.Session.Secure)
	pages := handler.NewPageHandler(insights, planner, sessions, store, synthesizer, hasher.New())
	voice := websocket.NewVoiceHandler(planner)

	e, err := newServer(cfg, routes{
		pages:    pages,
		sessions: sessions,
		voice:    voice,
	})
	if err != nil {
		log.With().Fatal("building server", zap.Error(err))
	}

	log.With().Info("Starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("voice", transcriber != nil),
		zap.Bool("read_aloud", synthesizer != nil))

	go func() {
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.With().Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.With().Error("shutting down", zap.Error(err))
	}
}

func newLlm(ctx context.Context, cfg *config.Config) (domain.Llm, error) {
	if cfg.LLM.Provider == "echo" {
		return &llm.Echo{}, nil
	}
	if cfg.LLM.APIKey == "" {
		log.With().Warn("GEMINI_API_KEY is not set, completions will fail")
	}
	policy := retry.Policy{
		MaxAttempts:  cfg.LLM.Retry.MaxAttempts,
		InitialDelay: cfg.LLM.Retry.InitialDelay,
		MaxDelay:     cfg.LLM.Retry.MaxDelay,
		Multiplier:   2,
	}
	return llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, llm.WithRetry(policy))
}

// sessionSecret falls back to a random key, which invalidates cookies on restart.
// Sessions do not survive a restart anyway.
func sessionSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.With().Fatal("generating session secret", zap.Error(err))
	}
	return secret
}
