package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"flowbot/internal/auth"
	"flowbot/internal/config"
	svc "flowbot/internal/domain/services/assistant"
	"flowbot/internal/handler"
	"flowbot/internal/handler/sse"
	"flowbot/internal/middleware"
	"flowbot/internal/palette"
	"flowbot/internal/repository/demo"
	"flowbot/internal/repository/forensicapi"
	"flowbot/internal/repository/postgres"
	"flowbot/internal/service/assistant/actions"
	"flowbot/internal/service/assistant/autocomplete"
	"flowbot/internal/service/assistant/conversation"
	"flowbot/internal/service/assistant/session"
	"flowbot/internal/service/assistant/visualization"
)

// backends groups the collaborators the assistant needs
type backends struct {
	query        svc.QueryService
	hypothesis   svc.HypothesisService
	sessions     svc.SessionStore
	autocomplete svc.AutocompleteService
	pins         svc.PinService
	analyzer     svc.CaseAnalyzer
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("bridge starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"demo_mode", cfg.DemoMode,
	)

	ctx := context.Background()

	var be backends
	if cfg.DemoMode {
		backend := demo.NewBackend(demo.Options{Latency: 400 * time.Millisecond, Logger: logger})
		be = backends{backend, backend, backend, backend, backend, backend}
		logger.Warn("DEMO MODE: using the in-memory sample case", "case_id", demo.CaseID)
	} else {
		client := forensicapi.NewClient(forensicapi.Options{
			BaseURL: cfg.APIBaseURL,
			Timeout: cfg.APITimeout,
			Tokens:  auth.NewStaticTokenSource(cfg.APIToken, logger),
			Logger:  logger,
		})
		be = backends{client, client, client, client, client, client}
		logger.Info("forensic backend configured", "base_url", cfg.APIBaseURL)
	}

	// Direct session persistence bypasses the chat-sessions API
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" && !cfg.DemoMode {
		pool, err = postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		be.sessions = postgres.NewSessionStore(
			&postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger},
			postgres.NewTransactionManager(pool, logger),
		)
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)
	}

	colors, err := palette.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load palette: %v", err)
	}

	suggester := autocomplete.NewSuggester(autocomplete.Options{
		Service:  be.autocomplete,
		DemoMode: cfg.DemoMode,
		Debounce: cfg.AutocompleteDebounce,
		Timeout:  cfg.APITimeout,
		Logger:   logger,
	})
	defer suggester.Stop()

	manager := session.NewManager(session.Options{
		Store:          be.sessions,
		Analyzer:       be.analyzer,
		Logger:         logger,
		PersistTimeout: cfg.PersistTimeout,
		DemoMode:       cfg.DemoMode,
	})

	ctrl := conversation.NewController(conversation.Options{
		Query:      be.query,
		Hypothesis: be.hypothesis,
		Pins:       be.pins,
		Sink:       manager,
		Actions:    actions.NewDispatcher(nil),
		Renderer:   visualization.NewRenderer(colors, logger),
		Suggester:  suggester,
		Logger:     logger,
		DemoMode:   cfg.DemoMode,
	})

	sseConfig := sse.DefaultConfig()
	hub := sse.NewHub(sseConfig, logger)
	stopForwarding := handler.Forward(hub, ctrl, suggester)
	defer stopForwarding()

	assistantHandler := handler.NewAssistantHandler(manager, ctrl, suggester, cfg.APITimeout+5*time.Second, logger)
	eventsHandler := handler.NewEventsHandler(hub, ctrl, sseConfig, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	assistantHandler.Register(mux)
	mux.HandleFunc("GET /api/events", eventsHandler.Stream)

	// Build middleware chain
	// Order: CORS → Recovery → Logging → Routes
	var h http.Handler = mux
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Let background persistence and pin requests finish
	manager.Wait()
	ctrl.Wait()
	logger.Info("bridge stopped")
}
