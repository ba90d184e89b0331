// Package handlers exposes the HTTP surface: agreement and draft uploads,
// admin review, notification listing, and thread history. Every mutation
// delegates to the same domain services the realtime gateway uses.
package handlers

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colabhq/campaignd/internal/campaign"
	"github.com/colabhq/campaignd/internal/chat"
	"github.com/colabhq/campaignd/internal/notification"
	"github.com/colabhq/campaignd/internal/realtime"
	"github.com/colabhq/campaignd/pkg/db"
	"github.com/colabhq/campaignd/pkg/job"
	"github.com/colabhq/campaignd/pkg/session"
	"github.com/colabhq/campaignd/pkg/storage"
)

const defaultCookieName = "__sid"

// Enqueuer schedules background jobs. Implemented by job.Enqueuer and
// job.Manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	log           *slog.Logger
	pool          *pgxpool.Pool
	sessions      session.Store
	files         storage.Storage
	campaigns     *campaign.Service
	notifications *notification.Dispatcher
	chat          *chat.Service
	jobs          Enqueuer
	tracker       *realtime.Tracker

	cookieName string
}

// runTx executes fn inside a database transaction. Without a pool the
// handlers run fn directly; in-memory stores have no transactions.
func (a *API) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if a.pool == nil {
		return fn(nil)
	}
	return db.WithTx(ctx, a.pool, fn)
}

// Option configures the API instance.
type Option func(*API)

// WithCookieName overrides the session cookie name. Must match the
// realtime gateway's cookie so one login serves both surfaces.
func WithCookieName(name string) Option {
	return func(a *API) {
		a.cookieName = name
	}
}

// New creates the API instance.
func New(
	log *slog.Logger,
	pool *pgxpool.Pool,
	sessions session.Store,
	files storage.Storage,
	campaigns *campaign.Service,
	notifications *notification.Dispatcher,
	chatSvc *chat.Service,
	jobs Enqueuer,
	tracker *realtime.Tracker,
	opts ...Option,
) *API {
	a := &API{
		log:           log,
		pool:          pool,
		sessions:      sessions,
		files:         files,
		campaigns:     campaigns,
		notifications: notifications,
		chat:          chatSvc,
		jobs:          jobs,
		tracker:       tracker,
		cookieName:    defaultCookieName,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(a.AuthMiddleware)

		r.Post("/tasks/{taskID}/agreement", a.SubmitAgreement)
		r.Post("/tasks/{taskID}/draft", a.SubmitDraft)

		r.Get("/notifications", a.ListNotifications)
		r.Post("/notifications/{notificationID}/read", a.MarkNotificationRead)

		r.Get("/threads/{threadID}/messages", a.ThreadHistory)
		r.Post("/threads/{threadID}/seen", a.MarkThreadSeen)

		r.With(a.AdminOnly).Get("/tasks/{taskID}/submissions", a.ListSubmissions)
		r.With(a.AdminOnly).Post("/submissions/{submissionID}/review", a.ReviewSubmission)
	})

	return r
}
