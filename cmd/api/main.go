package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/jsl-segmenter/internal/agents"
	"github.com/snappy-loop/jsl-segmenter/internal/auth"
	"github.com/snappy-loop/jsl-segmenter/internal/config"
	"github.com/snappy-loop/jsl-segmenter/internal/handlers"
	"github.com/snappy-loop/jsl-segmenter/internal/llm"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting JSL segmenter")

	llmClient, err := llm.NewClient(context.Background(), llm.Options{
		APIKey:         cfg.GeminiAPIKey,
		APIEndpoint:    cfg.GeminiAPIEndpoint,
		Backend:        cfg.SegmentBackend,
		Model:          cfg.GeminiModelSegment,
		Temperature:    cfg.SegmentTemperature,
		MaxInputLength: cfg.MaxInputLength,
		RateInterval:   cfg.SegmentRateInterval,
		RateBurst:      cfg.SegmentRateBurst,
		CacheTTL:       cfg.SegmentCacheTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LLM client")
	}
	defer llmClient.Close()

	h := handlers.NewHandler(agents.NewSegmentationAgent(llmClient), cfg.SegmentTimeout)

	authService := auth.NewService(cfg.AccessTokenHash)
	if authService.Enabled() {
		log.Info().Msg("Access token gate enabled")
	}

	r := mux.NewRouter()
	r.Use(handlers.RequestLogger)
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.Handle("/ws", authService.Middleware(http.HandlerFunc(h.SessionWS))).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(authService.Middleware)
	api.HandleFunc("/segment", h.Segment).Methods("POST")
	api.HandleFunc("/examples", h.Examples).Methods("GET")

	// No WriteTimeout: it would also cut long-lived WebSocket sessions.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Exited")
}
