// Command server runs the campaign backend: the REST API, the realtime
// websocket gateway, and the background job workers in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/colabhq/campaignd/internal/campaign"
	"github.com/colabhq/campaignd/internal/chat"
	"github.com/colabhq/campaignd/internal/config"
	"github.com/colabhq/campaignd/internal/handlers"
	"github.com/colabhq/campaignd/internal/migrations"
	"github.com/colabhq/campaignd/internal/notification"
	"github.com/colabhq/campaignd/internal/realtime"
	"github.com/colabhq/campaignd/internal/transcode"
	"github.com/colabhq/campaignd/pkg/db"
	"github.com/colabhq/campaignd/pkg/job"
	"github.com/colabhq/campaignd/pkg/logger"
	"github.com/colabhq/campaignd/pkg/redis"
	"github.com/colabhq/campaignd/pkg/session"
	"github.com/colabhq/campaignd/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithSentry("server", cfg.Sentry)

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, logger.New("migrations")); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redis.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	sessions := session.NewCachedStore(session.NewPostgresStore(pool), redisClient)

	chatSvc := chat.NewService(chat.NewPostgresStore(pool), logger.New("chat"))

	registry := realtime.NewRegistry()
	tracker := realtime.NewTracker()
	gateway := realtime.NewGateway(logger.New("realtime"), sessions, chatSvc, registry, tracker,
		realtime.WithCookieName(cfg.Session.CookieName),
	)

	dispatcher := notification.NewDispatcher(logger.New("notification"),
		notification.NewPostgresStore(pool), gateway)

	campaigns := campaign.NewService(logger.New("campaign"),
		campaign.NewPostgresStore(pool), dispatcher)

	transcoder := transcode.NewTask(logger.New("transcode"), files, tracker, gateway,
		transcode.WithFFmpegPath(cfg.Worker.FFmpegPath),
	)

	jobs, err := job.NewManager(pool,
		job.WithLogger(logger.New("jobs")),
		job.WithMaxWorkers(cfg.Worker.MaxWorkers),
		job.WithTask[transcode.Payload](transcoder),
		job.WithScheduledTask(session.NewCleanupTask(sessions, logger.New("sessions"))),
	)
	if err != nil {
		return fmt.Errorf("init job manager: %w", err)
	}

	api := handlers.New(logger.New("api"), pool, sessions, files, campaigns, dispatcher, chatSvc, jobs, tracker,
		handlers.WithCookieName(cfg.Session.CookieName),
	)

	r := chi.NewRouter()
	r.Get("/healthz", healthz(db.Healthcheck(pool), redis.Healthcheck(redisClient), job.Healthcheck(jobs)))
	r.Handle("/ws", gateway)
	r.Mount("/api/v1", api.Router())

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start job manager: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(ctx, "server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Workers drain before the connections they depend on close.
	shutdownHooks := []func(context.Context) error{
		jobs.Shutdown(),
		redis.Shutdown(redisClient),
		db.Shutdown(pool),
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", slog.Any("error", err))
		}
		for _, hook := range shutdownHooks {
			if err := hook(shutdownCtx); err != nil && !errors.Is(err, job.ErrNotStarted) {
				log.Error("shutdown hook", slog.Any("error", err))
			}
		}
		return nil
	})

	return g.Wait()
}

// healthz runs every readiness check and reports 503 on the first
// failure.
func healthz(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
