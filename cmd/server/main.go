package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/duo-journal/internal/http/health"
	"github.com/janisto/duo-journal/internal/http/v1/routes"
	"github.com/janisto/duo-journal/internal/platform/auth"
	"github.com/janisto/duo-journal/internal/platform/config"
	"github.com/janisto/duo-journal/internal/platform/firebase"
	applog "github.com/janisto/duo-journal/internal/platform/logging"
	appmiddleware "github.com/janisto/duo-journal/internal/platform/middleware"
	"github.com/janisto/duo-journal/internal/platform/respond"
	calendarsvc "github.com/janisto/duo-journal/internal/service/calendar"
	companionsvc "github.com/janisto/duo-journal/internal/service/companion"
	"github.com/janisto/duo-journal/internal/service/journal"
	partnersvc "github.com/janisto/duo-journal/internal/service/partner"
	profilesvc "github.com/janisto/duo-journal/internal/service/profile"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	apiBase      = "/v1"
	docsPath     = "/api-docs"
	maxBodyBytes = 2 << 20
	shutdownWait = 10 * time.Second
)

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}
	if err := run(); err != nil {
		applog.LogFatal(context.Background(), "server failed", err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applog.SetProjectID(cfg.ProjectID)

	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:                    cfg.ProjectID,
		GoogleApplicationCredentials: cfg.GoogleApplicationCredentials,
		SkipFirestore:                cfg.DataBackend == config.BackendMemory,
	})
	if err != nil {
		return fmt.Errorf("initializing firebase: %w", err)
	}
	defer func() {
		if err := clients.Close(); err != nil {
			applog.LogError(ctx, "firebase close error", err)
		}
	}()

	model, err := newCompanionModel(ctx, cfg.Companion)
	if err != nil {
		return fmt.Errorf("initializing companion: %w", err)
	}
	svc := newServices(clients.Firestore, model)

	handler := newRouter(auth.NewFirebaseVerifier(clients.Auth), svc, routerOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Health: health.Info{
			Version:   Version,
			Backend:   cfg.DataBackend,
			Companion: svc.Companion.Enabled(),
		},
	})

	srv, cancelStreams := newServer(cfg.Port, handler)
	defer cancelStreams()

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.DataBackend),
			zap.String("companion", cfg.Companion.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(ctx, "server exited")
	return nil
}

// newServices picks the storage backend: Firestore when a client is given,
// process memory otherwise.
func newServices(fs *firestore.Client, model companionsvc.Model) routes.Services {
	if fs == nil {
		profiles := profilesvc.NewMemoryStore()
		return routes.Services{
			Profiles:  profiles,
			Partners:  partnersvc.NewLinkService(partnersvc.NewMemoryStore(), profiles),
			Journal:   journal.NewMemoryStore(),
			Calendar:  calendarsvc.NewMemoryStore(),
			Companion: companionsvc.NewService(companionsvc.NewMemoryStore(), model),
		}
	}
	profiles := profilesvc.NewFirestoreStore(fs)
	return routes.Services{
		Profiles:  profiles,
		Partners:  partnersvc.NewLinkService(partnersvc.NewFirestoreStore(fs), profiles),
		Journal:   journal.NewFirestoreStore(fs),
		Calendar:  calendarsvc.NewFirestoreStore(fs),
		Companion: companionsvc.NewService(companionsvc.NewFirestoreStore(fs), model),
	}
}

// newCompanionModel returns nil when no provider is configured, which
// disables generation and chat.
func newCompanionModel(ctx context.Context, cfg config.CompanionConfig) (companionsvc.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		var opts []companionsvc.OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, companionsvc.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, companionsvc.WithModel(cfg.Model))
		}
		return companionsvc.NewOpenAIModel(&http.Client{Timeout: cfg.Timeout}, cfg.APIKey, opts...), nil
	case config.ProviderGenAI:
		return companionsvc.NewGenAIModel(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, nil
	}
}

type routerOptions struct {
	AllowedOrigins []string
	Health         health.Info
}

func newRouter(verifier auth.Verifier, svc routes.Services, opts routerOptions) chi.Router {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(apiBase+docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(opts.AllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For; only deploy behind a proxy that sets it.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxBodyBytes),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	healthHandler := health.Handler(opts.Health)
	router.Get("/health", healthHandler)
	router.Head("/health", healthHandler)

	v1 := chi.NewRouter()
	v1.NotFound(respond.NotFoundHandler())
	v1.MethodNotAllowed(respond.MethodNotAllowedHandler())
	api := newAPI(v1)
	routes.Register(api, verifier, svc)
	router.Mount(apiBase, v1)

	return router
}

func newAPI(router chi.Router) huma.API {
	cfg := huma.DefaultConfig("Duo Journal API", Version)
	cfg.DocsPath = docsPath
	cfg.Servers = []*huma.Server{{URL: apiBase}}
	// Huma negotiates Accept by exact match; unknown types fall back to JSON.
	api := humachi.New(router, cfg)

	// Add CBOR content type to OpenAPI requests and responses
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)
	return api
}

func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

// newServer builds the HTTP server. Partner event streams stay open, so
// there is no write timeout; instead every request context derives from a
// base context that is cancelled when shutdown starts.
func newServer(port string, handler http.Handler) (*http.Server, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv, cancel
}
