// Package server boots the application: config, log sink, storage, the
// document store, registries, routes and background tasks, then runs the
// HTTP server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appgraphql "github.com/sesamoshop/tienda/app/graphql"
	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/app/routes"
	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/config"
	"github.com/sesamoshop/tienda/internal/ratelimit"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/event"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/metrics"
	"github.com/sesamoshop/tienda/pkg/middleware"
	"github.com/sesamoshop/tienda/pkg/reqid"
	"github.com/sesamoshop/tienda/pkg/router"
	"github.com/sesamoshop/tienda/pkg/schedule"
	"github.com/sesamoshop/tienda/pkg/storage"
	"github.com/sesamoshop/tienda/pkg/ws"
)

// shutdownTimeout bounds both the HTTP drain and the final document save.
const shutdownTimeout = 10 * time.Second

// App is the fully wired application. Tests and CLI commands boot it the
// same way the server does.
type App struct {
	Router    *router.Router
	Store     *store.Store
	Sessions  *session.Registry
	Limiter   *ratelimit.Limiter
	Collector *uploads.Collector
	Feed      *ws.Hub

	mongoSink *logger.MongoHandler
}

// Boot loads configuration and wires every component together. No listener
// is opened and no background task started yet.
func Boot() (*App, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	sink, err := logger.ConnectMongoSink()
	if err != nil {
		logger.Warn("server: mongo log sink unavailable", "error", err)
	}

	storage.Connect()
	disk := storage.Default()
	uploadsDir := config.UploadsDir()
	if err := disk.MakeDirectory(uploadsDir); err != nil {
		return nil, err
	}

	st := store.Open(config.DatabaseFile())
	sessions := session.NewRegistry(config.SessionTTL())
	limiter := ratelimit.New(config.RateLimitMax(), config.RateLimitWindow())
	collector := uploads.NewCollector(disk, uploadsDir, st)
	saver := uploads.NewSaver(disk, uploadsDir)

	catalog := services.NewCatalogService(st, saver, disk, uploadsDir)
	auth := services.NewAuthService(st, sessions, limiter)

	gql, err := appgraphql.New(catalog)
	if err != nil {
		return nil, err
	}

	feed := ws.NewHub()
	event.Listen(services.ActivityEvent, func(payload any) {
		if entry, ok := payload.(models.ActivityEntry); ok {
			feed.BroadcastJSON(entry)
		}
	})

	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))

	routes.RegisterAPI(r, routes.Deps{
		Auth:       auth,
		Catalog:    catalog,
		Sessions:   sessions,
		Collector:  collector,
		Disk:       disk,
		UploadsDir: uploadsDir,
		Feed:       feed,
		GraphQL:    gql,
	})

	return &App{
		Router:    r,
		Store:     st,
		Sessions:  sessions,
		Limiter:   limiter,
		Collector: collector,
		Feed:      feed,
		mongoSink: sink,
	}, nil
}

// Close releases what Boot opened.
func (a *App) Close() {
	a.Store.Close()
	if a.mongoSink != nil {
		a.mongoSink.Close()
	}
}

// Start runs the server until SIGINT or SIGTERM, then drains connections
// and saves the document one last time.
func Start() error {
	app, err := Boot()
	if err != nil {
		return err
	}
	defer app.Close()

	// Reclaim anything a crash left behind before serving traffic.
	if rep, err := app.Collector.Collect(); err != nil {
		logger.Warn("server: startup image cleanup failed", "error", err)
	} else if rep.DeletedCount > 0 {
		logger.Info("server: startup image cleanup", "deleted", rep.DeletedCount)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go app.Feed.Run()

	schedule.EveryMinute().Name("sessions:sweep").Run(func() {
		if n := app.Sessions.SweepExpired(); n > 0 {
			logger.Info("server: sessions swept", "expired", n)
		}
	})
	schedule.EveryMinute().Name("ratelimit:sweep").Run(func() {
		app.Limiter.Sweep()
	})
	schedule.DailyAt("03:00").Name("uploads:gc").WithoutOverlapping().Run(func() {
		if _, err := app.Collector.Collect(); err != nil {
			logger.Warn("server: scheduled image cleanup failed", "error", err)
		}
	})
	schedule.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           app.Router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", config.AppEnv())
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("server: shutting down", "signal", s.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: http shutdown", "error", err)
	}

	if err := app.Store.Save(shutdownCtx); err != nil && !errors.Is(err, store.ErrClosed) {
		logger.Error("server: final save failed", "error", err)
		return err
	}
	logger.Info("server: document saved, bye")
	return nil
}
