package clientapp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/config"
	"github.com/aafarian/hantibink-sub003/internal/infra/httpclient"
	"github.com/aafarian/hantibink-sub003/internal/realtime"
	"github.com/aafarian/hantibink-sub003/internal/services/discovery"
	"github.com/aafarian/hantibink-sub003/internal/services/likedyou"
	"github.com/aafarian/hantibink-sub003/internal/services/location"
	"github.com/aafarian/hantibink-sub003/internal/services/messages"
	"github.com/aafarian/hantibink-sub003/internal/services/notices"
	"github.com/aafarian/hantibink-sub003/internal/services/registration"
	"github.com/aafarian/hantibink-sub003/internal/services/session"
	"github.com/aafarian/hantibink-sub003/internal/services/viewer"
)

// App assembles the client core: one API client, one realtime channel and
// the per-screen controllers, all sharing the notices center and session.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Notices      *notices.Center
	Sessions     *session.Manager
	API          *api.Client
	Realtime     *realtime.Client
	Inbox        *likedyou.Inbox
	Deck         *discovery.Deck
	Messages     *messages.Service
	Locations    *location.Service
	Registration *registration.Wizard
	Viewer       *viewer.Viewer

	subs []*realtime.Subscription
}

// Options carries the platform pieces the core cannot build itself.
type Options struct {
	// LocationProvider wraps the device geolocation SDK. Nil disables
	// position capture; the location service reports ErrNoProvider.
	LocationProvider location.Provider
}

func New(cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		return nil, errors.New("logger is nil")
	}

	center := notices.NewCenter(cfg.Notices.Buffer, log)

	// The API client authenticates with the session manager's token and
	// the manager logs in through the API client. The proxy breaks the
	// construction cycle.
	tokens := &tokenProxy{}
	httpClient := httpclient.New(cfg.API.Timeout)
	apiClient := api.NewClient(cfg.API.BaseURL, httpClient, tokens, log)
	sessions := session.NewManager(apiClient, session.NewFileStore(cfg.Session.StorePath), log)
	tokens.set(sessions)

	realtimeClient := realtime.NewClient(realtime.Config{
		URL:              cfg.Realtime.URL,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		PingInterval:     cfg.Realtime.PingInterval,
	}, sessions, log)

	inbox := likedyou.NewInbox(apiClient, apiClient, center, likedyou.Config{
		BatchSize:        cfg.Likes.BatchSize,
		PlaceholderPhoto: cfg.Likes.PlaceholderPhoto,
	}, log)
	deck := discovery.NewDeck(apiClient, apiClient, center, discovery.Config{
		FetchSize: cfg.Discovery.FetchSize,
		LowWater:  cfg.Discovery.LowWater,
	}, log)
	messageService := messages.NewService(apiClient, center, sessions, messages.Config{
		PageSize: cfg.Messages.PageSize,
	}, log)
	locationService := location.NewService(opts.LocationProvider, apiClient, cfg.Location.Cities, log)
	wizard := registration.NewWizard(apiClient, locationService, log)

	return &App{
		cfg:          cfg,
		logger:       log,
		Notices:      center,
		Sessions:     sessions,
		API:          apiClient,
		Realtime:     realtimeClient,
		Inbox:        inbox,
		Deck:         deck,
		Messages:     messageService,
		Locations:    locationService,
		Registration: wizard,
		Viewer:       viewer.New(center),
	}, nil
}

// Run restores the persisted session and brings the live channel up,
// routing pushed events into the controllers. It returns once connected;
// the channel lives until Shutdown or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Sessions.Restore(); err != nil {
		a.logger.Warn("session restore failed", zap.Error(err))
	}

	a.subs = append(a.subs,
		a.Realtime.OnLikedYou(a.Inbox.Apply),
		a.Realtime.OnMatch(a.Messages.ApplyMatch),
		a.Realtime.OnMessage(a.Messages.ApplyMessage),
	)

	if _, ok := a.Sessions.Current(); !ok {
		a.logger.Info("no session yet, realtime channel deferred until sign-in")
		return nil
	}
	return a.ConnectRealtime(ctx)
}

// ConnectRealtime dials the push channel. Called by Run for a restored
// session and again by the shell after a fresh sign-in.
func (a *App) ConnectRealtime(ctx context.Context) error {
	if err := a.Realtime.Connect(ctx); err != nil {
		return fmt.Errorf("connect realtime channel: %w", err)
	}
	return nil
}

func (a *App) Shutdown() error {
	for _, sub := range a.subs {
		sub.Close()
	}
	a.subs = nil
	return a.Realtime.Close()
}

type tokenProxy struct {
	mu     sync.RWMutex
	source api.TokenSource
}

func (p *tokenProxy) set(source api.TokenSource) {
	p.mu.Lock()
	p.source = source
	p.mu.Unlock()
}

func (p *tokenProxy) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.source == nil {
		return ""
	}
	return p.source.AccessToken()
}
