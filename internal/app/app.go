// Package app wires the orchestration layer together and holds the
// application state coordinator.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/auth"
	"github.com/devjadaun/documind-go/internal/config"
	"github.com/devjadaun/documind-go/internal/services"
	"github.com/devjadaun/documind-go/internal/transport"
)

// App owns the orchestration components: session tracker, credential store,
// request dispatcher, upload pipeline, query operations and the state
// coordinator. Presentation layers call into it and render returned data.
type App struct {
	Config      *config.Config
	Log         *zap.Logger
	Provider    *auth.HTTPProvider
	Creds       *auth.CredentialStore
	Tracker     *auth.Tracker
	API         *transport.Client
	Documents   *services.DocumentService
	Queries     *services.QueryService
	Coordinator *Coordinator

	unsubscribe func()
}

// New builds the full client from config. The provider public key, when
// configured, is used to verify issued access tokens.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	publicKey, err := auth.LoadPublicKey(cfg.AuthPublicKeyPath)
	if err != nil {
		return nil, err
	}

	provider := auth.NewHTTPProvider(cfg.AuthBaseURL, publicKey, log)
	creds := auth.NewCredentialStore()
	tracker := auth.NewTracker(provider, creds, cfg.SessionInitTimeout, log)

	api := transport.NewClient(transport.Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		UploadTimeout:  cfg.UploadTimeout,
		LookupTimeout:  cfg.SessionLookupTimeout,
	}, tracker, creds.Get, log)

	docSvc := services.NewDocumentService(api, log)
	querySvc := services.NewQueryService(api, log)
	coordinator := NewCoordinator(docSvc, querySvc, log)
	docSvc.SetRefreshHook(coordinator.RefreshDocuments)

	return &App{
		Config:      cfg,
		Log:         log,
		Provider:    provider,
		Creds:       creds,
		Tracker:     tracker,
		API:         api,
		Documents:   docSvc,
		Queries:     querySvc,
		Coordinator: coordinator,
	}, nil
}

// Start checks for an existing session (bounded by the init fallback) and
// subscribes the coordinator to further auth changes.
func (a *App) Start(ctx context.Context) {
	ev := a.Tracker.Initialize(ctx)
	a.Coordinator.HandleAuthEvent(ctx, ev)

	a.unsubscribe = a.Tracker.Subscribe(func(ev auth.AuthEvent) {
		a.Coordinator.HandleAuthEvent(context.Background(), ev)
	})
}

// Close tears down the auth subscription. Must be called so late provider
// notifications cannot act on a torn-down application.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	_ = a.Log.Sync()
}
