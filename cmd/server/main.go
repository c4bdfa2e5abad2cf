package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vedran77/campusnet/internal/auth"
	"github.com/vedran77/campusnet/internal/config"
	"github.com/vedran77/campusnet/internal/database"
	"github.com/vedran77/campusnet/internal/logging"
	"github.com/vedran77/campusnet/internal/pubsub"
	"github.com/vedran77/campusnet/internal/repository"
	"github.com/vedran77/campusnet/internal/repository/memory"
	postgresrepo "github.com/vedran77/campusnet/internal/repository/postgres"
	"github.com/vedran77/campusnet/internal/service"
	"github.com/vedran77/campusnet/internal/transport/http/handlers"
	"github.com/vedran77/campusnet/internal/transport/http/middleware"
	"github.com/vedran77/campusnet/internal/transport/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tokens := auth.NewTokens(cfg.JWTSecret)

	// Storage
	exec, cleanup, err := openStore(ctx, cfg, logger, tokens)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)

	// Realtime
	hub := ws.NewHub(logger)
	g.Go(func() error { return hub.Run(ctx) })

	var publisher service.Publisher = ws.NewHubNotifier(hub)
	if cfg.RedisURL != "" {
		rdb, err := pubsub.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		publisher = pubsub.NewPublisher(rdb, logger)
		relay := pubsub.NewRelay(rdb, hub, logger)
		g.Go(func() error { return relay.Run(ctx) })
		logger.Info("realtime fan-out via redis")
	}

	// Services
	notificationService := service.NewNotificationService(exec, logger, cfg.NotifyTimeout)
	notificationService.SetPublisher(publisher)
	connectionService := service.NewConnectionService(exec, notificationService)
	conversationService := service.NewConversationService(exec, notificationService)
	conversationService.SetPublisher(publisher)

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /ws", ws.ServeWS(ctx, hub, tokens, originPatterns(cfg.CORSOrigin)))
	handlers.Register(mux, middleware.Auth(tokens), handlers.Handlers{
		Connections:   handlers.NewConnectionHandler(connectionService),
		Conversations: handlers.NewConversationHandler(conversationService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		ReadModels:    handlers.NewReadModelHandler(service.NewFeedService(exec), service.NewSearchService(exec)),
	})

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = middleware.RequestLogger(logger)(handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, tokens *auth.Tokens) (repository.Executor, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		seedDemo(store, tokens, logger)
		return store, func() {}, nil

	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to database")

		if cfg.DBApplySchema {
			if err := database.ApplySchema(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("applying schema: %w", err)
			}
			logger.Info("schema applied")
		}
		return postgresrepo.NewExecutor(pool, cfg.DBScopedRole, logger), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// originPatterns turns the CORS origin into a websocket host pattern.
func originPatterns(origin string) []string {
	if origin == "" || origin == "*" {
		return []string{"*"}
	}
	host := origin
	if _, rest, ok := strings.Cut(origin, "://"); ok {
		host = rest
	}
	return []string{host}
}
