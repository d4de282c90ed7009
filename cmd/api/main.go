// Package main is the entrypoint for the Bookscout API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bookscout/bookscout/internal/analytics"
	"github.com/bookscout/bookscout/internal/auth"
	"github.com/bookscout/bookscout/internal/bookprovider"
	"github.com/bookscout/bookscout/internal/cache"
	"github.com/bookscout/bookscout/internal/config"
	"github.com/bookscout/bookscout/internal/handler"
	"github.com/bookscout/bookscout/internal/memstore"
	"github.com/bookscout/bookscout/internal/metrics"
	"github.com/bookscout/bookscout/internal/middleware"
	"github.com/bookscout/bookscout/internal/repository"
	"github.com/bookscout/bookscout/internal/server"
	"github.com/bookscout/bookscout/internal/service"
)

const version = "0.1.0"

// store is what both storage backends provide.
type store interface {
	service.UserStore
	service.SearchStore
	Ping(ctx context.Context) error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewInMemory()

	scheme, err := auth.NewScheme(cfg.CredentialScheme)
	if err != nil {
		logger.Error("invalid credential scheme", "error", err)
		os.Exit(1)
	}

	srv := server.New(
		nil,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	b, err := connectBackends(ctx, cfg, logger, srv, recorder)
	if err != nil {
		os.Exit(1)
	}
	st := b.store

	provider := bookprovider.New(bookprovider.Options{
		BaseURL:    cfg.BooksAPIBaseURL,
		APIKey:     cfg.GoogleBooksAPIKey,
		HTTPClient: bookprovider.NewHTTPClient(cfg.ProviderTimeout),
		Limiter:    bookprovider.NewLimiter("books_api", cfg.ProviderRateLimitRPS),
		Logger:     logger,
	})

	userService := service.NewUserService(st, scheme, recorder)
	bookService := service.NewBookService(provider, st, st, recorder, b.bookOpts...)

	deps := routerDeps{
		base:     handler.New(version),
		health:   handler.NewHealthHandler(cfg.StoreDriver, st, b.cache),
		metrics:  handler.NewMetricsHandler(recorder),
		accounts: handler.NewAccountHandler(userService, logger),
		books:    handler.NewBookHandler(bookService, logger),
	}
	if cfg.AuditEnabled {
		deps.audit = handler.NewAuditHandler(userService, bookService, logger)
	}

	srv.SetHandler(setupRouter(deps, cfg, logger))

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"credential_scheme", scheme.Name(),
		"audit_enabled", cfg.AuditEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// backends holds the connected storage and the optional Redis wiring.
type backends struct {
	store    store
	cache    handler.HealthChecker // nil without Redis
	bookOpts []service.BookServiceOption
}

// connectBackends opens the store, then Redis when configured, and registers
// their shutdown hooks. If Redis fails the store is closed before returning.
// Failures are logged here.
func connectBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger, srv *server.Server, recorder metrics.Recorder) (*backends, error) {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.OnShutdown("store", func(ctx context.Context) error {
		closeStore()
		return nil
	})

	b := &backends{store: st}
	if !cfg.RedisEnabled() {
		logger.Info("REDIS_URL not set, trending and search events disabled")
		return b, nil
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.PoolOptions{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		closeStore()
		return nil, err
	}
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})
	logger.Info("connected to Redis")
	b.cache = cacheClient

	worker := analytics.NewWorker(cacheClient.Client(), cacheClient, logger, analytics.NewConsumerID(), recorder)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("trending worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("trending_worker", worker.Shutdown)

	publisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)
	srv.OnShutdown("search_event_publisher", publisher.Shutdown)

	b.bookOpts = append(b.bookOpts,
		service.WithNotifier(publisher),
		service.WithTrending(cacheClient),
	)
	return b, nil
}

// openStore is swapped in tests.
var openStore = connectStore

// connectStore connects the configured backend and returns its close func.
func connectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if !cfg.UsesPostgres() {
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	dsn := cfg.DSN()
	if cfg.AutoMigrate {
		repository.SetMigrationOutput(os.Stderr)
		if err := repository.Migrate(ctx, dsn, repository.MigrateUp); err != nil {
			logger.Error(
				"failed to apply migrations",
				slog.String("error", sanitizeError(err, dsn)),
				slog.String("database_url", redactURL(dsn)),
			)
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, dsn, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, dsn)),
			slog.String("database_url", redactURL(dsn)),
		)
		return nil, nil, err
	}
	logger.Info("connected to database")

	return repo, repo.Close, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routerDeps groups the handlers the router mounts. A nil audit handler
// leaves the /data routes unmounted.
type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	accounts *handler.AccountHandler
	books    *handler.BookHandler
	audit    *handler.AuditHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)
	r.Get("/", d.base.Hello)

	// The browser client calls everything under /api.
	mountAPI(r, d)
	r.Route("/api", func(r chi.Router) {
		mountAPI(r, d)
	})

	r.NotFound(d.base.NotFound)
	r.MethodNotAllowed(d.base.MethodNotAllowed)

	return r
}

func mountAPI(r chi.Router, d routerDeps) {
	r.Post("/login", d.accounts.Login)
	r.Post("/register", d.accounts.Register)

	r.Get("/books", d.books.Lookup)
	r.Post("/search", d.books.Search)
	r.Get("/history", d.books.History)
	r.Get("/searches/trending", d.books.Trending)

	if d.audit != nil {
		r.Get("/data/users", d.audit.Users)
		r.Get("/data/searches", d.audit.Searches)
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
