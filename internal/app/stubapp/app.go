package stubapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/config"
)

// App is the development backend: the full REST surface the client
// speaks plus a websocket push endpoint, backed by seeded in-memory
// data. It exists so the client runs end to end without the production
// service.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	server *http.Server
	hub    *hub
	router http.Handler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	r := chi.NewRouter()
	applyMiddlewares(r, log)

	st := newState(cfg.Location.Cities, cfg.Stub.SeedLikes)
	pushHub := newHub(log)
	registerRoutes(r, routeDeps{state: st, hub: pushHub, log: log})

	server := &http.Server{
		Addr:         cfg.Stub.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Stub.ReadTimeout,
		WriteTimeout: cfg.Stub.WriteTimeout,
		IdleTimeout:  cfg.Stub.IdleTimeout,
	}

	return &App{
		cfg:    cfg,
		logger: log,
		server: server,
		hub:    pushHub,
		router: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("stub server started", zap.String("addr", a.cfg.Stub.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	a.hub.Close()
	return a.server.Shutdown(ctx)
}

func (a *App) Handler() http.Handler {
	return a.router
}
