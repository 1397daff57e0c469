package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kelvinhq/kelvin/pkg/api"
	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/config"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/payment"
	"github.com/kelvinhq/kelvin/pkg/session"
	"github.com/kelvinhq/kelvin/pkg/users"
)

func main() {
	templateDir := flag.String("templates", "web/templates", "Directory holding page templates")
	staticDir := flag.String("static", "web/static", "Directory holding static assets")
	flag.Parse()

	// A .env file is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger, *templateDir, *staticDir); err != nil {
		logger.WithError(err).Error("exiting")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, templateDir, staticDir string) error {
	ctx := context.Background()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	otel, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}

	// User store
	var (
		store users.Store
		db    *sql.DB
	)
	switch cfg.Users.Driver {
	case "memory":
		store = users.NewMemoryStore()
	default:
		db, err = sql.Open(cfg.Users.Driver, cfg.Users.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		sqlStore := users.NewSQLStore(db, cfg.Users.Driver == "postgres")
		if err := sqlStore.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
		store = sqlStore
	}

	// Optional shared cache tier
	var redisClient *redis.Client
	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	// Billing backend with the cached catalog in front
	var stats billing.CacheStats
	if metrics != nil {
		stats = metrics
	}
	cache, err := billing.NewCatalogCache(redisClient, cfg.Billing.CatalogTTL, stats)
	if err != nil {
		return fmt.Errorf("catalog cache: %w", err)
	}

	var backend billing.Client = billing.NewHTTPClient(cfg.Billing.URL, cfg.Billing.APIKey)
	if cfg.Billing.Permissive {
		logger.Warn("billing is permissive, entitlement checks always pass")
		backend = billing.NewPermissive(backend)
	}
	billingClient := billing.NewCachingClient(backend, cache)

	refresher := billing.NewRefresher(billingClient, logger)
	if err := refresher.Start(cfg.Billing.CatalogRefresh); err != nil {
		return fmt.Errorf("catalog refresher: %w", err)
	}
	defer refresher.Stop()

	// Payment processor
	paymentOpts := []payment.Option{}
	if cfg.Payment.BaseURL != "" {
		paymentOpts = append(paymentOpts, payment.WithBaseURL(cfg.Payment.BaseURL))
	}
	processor := payment.NewClient(cfg.Payment.SecretKey, paymentOpts...)

	// HTTP surface
	sessions := session.NewManager([]byte(cfg.Session.CookieSecret), cfg.Session.MaxAge, cfg.Session.CookieSecure)
	renderer, err := api.NewTemplateRenderer(templateDir, logger)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	defer renderer.Close()

	server := api.NewServer(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Sessions:  sessions,
		Users:     store,
		Auth:      users.NewFixedCredentialAuthenticator(cfg.Users.DemoUsername, cfg.Users.DemoPassword),
		Billing:   billingClient,
		Payments:  processor,
		Renderer:  renderer,
		StaticDir: staticDir,
	})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(server, "kelvin")
	}
	appServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scrapes
	health := observability.NewHealthChecker(db, redisClient, billingClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, appServer, healthServer)
	shutdown.RegisterShutdownFunc(otel.Shutdown)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("serving on %s", appServer.Addr)
		if err := appServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health endpoints on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return g.Wait()
}
