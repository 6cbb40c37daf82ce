package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"terratrust/internal/approval"
	"terratrust/internal/audit"
	"terratrust/internal/config"
	"terratrust/internal/infrastructure"
	"terratrust/internal/license"
	custommw "terratrust/internal/middleware"
	"terratrust/internal/security"
	"terratrust/internal/services"
	"terratrust/internal/store"
	"terratrust/internal/store/memory"
	"terratrust/internal/store/postgres"
	handlers "terratrust/internal/transport/http"
)

// trustStore is the storage capability set the application needs from
// either backend.
type trustStore interface {
	store.SettingsStore
	store.ApprovalStore
	audit.Recorder
	audit.Reader
}

// Application is the assembled service.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	otel    *infrastructure.OTelProviders
	cleanup func()
}

// New builds the application from configuration.
func New(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app: failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("app: failed to initialize logging: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("app: failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.CreateTrustMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("app: failed to create metrics: %w", err)
	}

	st, cleanup, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	manager := license.NewManager(st, st, security.NewFingerprintProvider(),
		license.DefaultVerifier(), logger, metrics)
	licenseService := services.NewLicenseService(manager, logger)

	directory := services.NewSettingsDirectory(st)
	gate := approval.NewGate(st, directory, st, logger, metrics)
	// No CredentialWriter in this deployment: the identity platform
	// applies permitted password changes on its side.
	accountService := services.NewAccountService(gate, directory, st, nil, logger)
	auditService := services.NewAuditService(st)

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		otel:    otelProviders,
		cleanup: cleanup,
	}
	app.Router = app.buildRouter(licenseService, accountService, auditService)
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (trustStore, func(), error) {
	switch cfg.Driver {
	case "postgres":
		repo, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown store driver %q", cfg.Driver)
	}
}

func (a *Application) buildRouter(licenseSvc services.LicenseService,
	accountSvc services.AccountService, auditSvc services.AuditService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommw.TraceContext)
	r.Use(custommw.RequestLogger(a.Logger))

	guard := custommw.NewLicenseGuard(licenseSvc, a.Logger)
	rateLimiter := custommw.NewRateLimiter(a.Config.Security.RateLimit, a.Logger)

	// Activation and deactivation drop the guard's cached verdict so a
	// fresh license takes effect on the next request.
	licenseSvc = &guardInvalidatingService{LicenseService: licenseSvc, guard: guard}

	r.Get("/healthz", handlers.HealthHandler)
	if a.otel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.otel.PrometheusHTTP)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(rateLimiter.Handler)
		api.Use(guard.Handler)

		api.Mount("/license", handlers.NewLicenseHandler(licenseSvc, a.Logger).Routes())
		api.Mount("/accounts", handlers.NewAccountHandler(accountSvc, a.Logger).Routes())
		api.Mount("/audit", handlers.NewAuditHandler(auditSvc, a.Logger).Routes())
	})

	return r
}

// guardInvalidatingService refreshes the license guard after every
// state-changing license operation.
type guardInvalidatingService struct {
	services.LicenseService
	guard *custommw.LicenseGuard
}

func (s *guardInvalidatingService) Activate(ctx context.Context, actor string, req services.ActivationRequest) (*services.LicenseStatusResponse, error) {
	resp, err := s.LicenseService.Activate(ctx, actor, req)
	if err == nil {
		s.guard.Invalidate()
	}
	return resp, err
}

func (s *guardInvalidatingService) Deactivate(ctx context.Context, actor string) error {
	err := s.LicenseService.Deactivate(ctx, actor)
	if err == nil {
		s.guard.Invalidate()
	}
	return err
}

// Run serves until the context is cancelled or a termination signal
// arrives, then shuts down within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("trust service listening",
			slog.String("addr", a.Server.Addr),
			slog.String("store", a.Config.Store.Driver),
		)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Logger.Info("shutting down")
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if otelErr := a.otel.Shutdown(shutdownCtx); otelErr != nil {
		a.Logger.Warn("telemetry shutdown failed", slog.String("error", otelErr.Error()))
	}
	a.cleanup()
	infrastructure.CloseLogFile()

	return err
}
