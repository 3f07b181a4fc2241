// Package main is the entry point for the chat relay server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/config"
	"github.com/capitalize-ai/chat-relay/internal/events"
	"github.com/capitalize-ai/chat-relay/internal/handler"
	"github.com/capitalize-ai/chat-relay/internal/llm"
	"github.com/capitalize-ai/chat-relay/internal/middleware"
	"github.com/capitalize-ai/chat-relay/internal/service"
	"github.com/capitalize-ai/chat-relay/internal/store"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
	"github.com/capitalize-ai/chat-relay/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	// Fail fast on unusable configuration
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	log.Info("starting chat relay",
		zap.String("port", cfg.ServerPort),
		zap.Bool("openai_configured", cfg.OpenAIAPIKey != ""),
		zap.Bool("perplexity_configured", cfg.PerplexityAPIKey != ""),
		zap.Bool("anthropic_configured", cfg.AnthropicAPIKey != ""),
	)

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-relay", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the optional event bus
	var publisher events.Publisher = events.NewNop()
	if cfg.NATSURL != "" {
		natsPublisher, err := events.Connect(events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, events disabled", zap.Error(err))
		} else {
			publisher = natsPublisher
		}
	}
	defer publisher.Close()

	// Initialize provider adapters
	var primary llm.Client
	switch cfg.PrimaryProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey != "" {
			primary, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
			if err != nil {
				log.Warn("failed to create Anthropic client, primary provider disabled", zap.Error(err))
			}
		}
	default:
		if cfg.OpenAIAPIKey != "" {
			primary, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
			if err != nil {
				log.Warn("failed to create OpenAI client, primary provider disabled", zap.Error(err))
			}
		}
	}

	var secondary llm.Client
	if cfg.PerplexityAPIKey != "" {
		secondary, err = llm.NewPerplexityClient(cfg.PerplexityAPIKey)
		if err != nil {
			log.Warn("failed to create Perplexity client, secondary provider disabled", zap.Error(err))
		}
	}

	// Initialize store and retention sweeper
	conversationStore := store.New()
	sweeper := store.NewSweeper(conversationStore, cfg.CleanupInterval, cfg.MaxConversationAge, publisher, log)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	// Initialize services
	dispatcher := service.NewDispatcher(primary, secondary, log)
	conversationSvc := service.NewConversationService(conversationStore, publisher, log)
	chatSvc := service.NewChatService(conversationStore, dispatcher, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler()
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(chatSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/health", healthHandler.Health)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Post("/messages", messageHandler.Send)
			})
		})
	})

	// Static frontend
	if cfg.StaticDir != "" {
		serveStatic(r, cfg.StaticDir)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stopSweeper()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// serveStatic serves the browser client from dir, falling back to
// index.html for client-side routes.
func serveStatic(r chi.Router, dir string) {
	fileServer := http.FileServer(http.Dir(dir))

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+req.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, req)
			return
		}
		http.ServeFile(w, req, filepath.Join(dir, "index.html"))
	})
}
