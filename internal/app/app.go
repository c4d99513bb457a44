package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/volleyball-league/external/github"
	"github.com/riskibarqy/volleyball-league/internal/config"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/rawdata"
	"github.com/riskibarqy/volleyball-league/internal/domain/standingsource"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/account/anubis"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/account/statictoken"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/runlock"
	"github.com/riskibarqy/volleyball-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/volleyball-league/internal/interfaces/scheduler"
	"github.com/riskibarqy/volleyball-league/internal/observability"
	basecache "github.com/riskibarqy/volleyball-league/internal/platform/cache"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/riskibarqy/volleyball-league/internal/platform/resilience"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	dbPingTimeout    = 5 * time.Second
	redisPingTimeout = 3 * time.Second
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// App owns the HTTP server, the import scheduler and every connection they
// depend on.
type App struct {
	cfg       config.Config
	logger    *logging.Logger
	server    *http.Server
	scheduler *scheduler.Scheduler
	closers   []closer
}

type stores struct {
	standings teamstanding.Repository
	rawData   rawdata.Repository
	runs      importrun.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{cfg: cfg, logger: logger}
	built := false
	defer func() {
		if !built {
			_ = a.closeAll(context.WithoutCancel(ctx))
		}
	}()

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	locker, err := a.newRunLocker(ctx)
	if err != nil {
		return nil, err
	}

	var (
		importMetrics  usecase.ImportMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		m := observability.NewImportMetrics()
		importMetrics = m
		metricsHandler = m.Handler()
	}

	source := standingsource.Config{
		Owner:  cfg.GitHubOwner,
		Repo:   cfg.GitHubRepo,
		Branch: cfg.GitHubBranch,
		Token:  cfg.GitHubToken,
	}
	fetcher := github.NewClient(github.ClientConfig{
		Source:            source,
		BaseURL:           cfg.GitHubBaseURL,
		Timeout:           cfg.GitHubTimeout,
		MaxRetries:        cfg.GitHubMaxRetries,
		RequestsPerSecond: cfg.GitHubRequestsPerSecond,
		Burst:             cfg.GitHubBurst,
		MaxBodyBytes:      cfg.GitHubMaxBodyBytes,
		Logger:            logger.Named("github"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.GitHubCircuitEnabled,
			FailureThreshold: cfg.GitHubCircuitFailureCount,
			OpenTimeout:      cfg.GitHubCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GitHubCircuitHalfOpenMaxReq,
		},
	})

	importService := usecase.NewImportService(usecase.ImportConfig{
		Source:           source,
		CurrentDir:       cfg.GitHubCurrentDir,
		HistoricalDir:    cfg.GitHubHistoricalDir,
		Location:         cfg.ImportLocation,
		FetchConcurrency: cfg.ImportFetchConcurrency,
	}, fetcher, st.standings, st.rawData, st.runs, locker, importMetrics, logger.Named("import"))

	standingService := usecase.NewStandingService(st.standings, st.runs, importService, usecase.StandingServiceConfig{
		Location:        cfg.ImportLocation,
		BackfillTimeout: cfg.BackfillTimeout,
		BackfillWorkers: cfg.BackfillWorkers,
	}, logger.Named("standings"))

	verifier, err := a.newTokenVerifier()
	if err != nil {
		return nil, err
	}

	handler := httpapi.NewHandler(importService, standingService, httpapi.DisplaySettings{
		PrimaryColor:    cfg.DisplayPrimaryColor,
		SecondaryColor:  cfg.DisplaySecondaryColor,
		SourceOwner:     cfg.GitHubOwner,
		SourceRepo:      cfg.GitHubRepo,
		SourceBranch:    cfg.GitHubBranch,
		TokenConfigured: source.HasToken(),
	}, logger.Named("http"))
	router := httpapi.NewRouter(handler, verifier, logger.Named("http"), httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		Metrics:            metricsHandler,
	})

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	if cfg.ImportCronEnabled {
		a.scheduler = scheduler.New(scheduler.Config{
			Schedule:   cfg.ImportCronSchedule,
			Location:   cfg.ImportLocation,
			RunTimeout: cfg.WriteTimeout,
		}, importService, logger)
	}

	built = true
	return a, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP and the import schedule until ctx is cancelled or the
// listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			_ = a.closeAll(context.WithoutCancel(ctx))
			return fmt.Errorf("start import scheduler: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok && err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop import scheduler: %w", err))
		}
	}
	if err := a.closeAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		a.logger.Info("http server stopped")
	}
	return errors.Join(errs...)
}

func (a *App) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	var st stores
	switch a.cfg.StoreDriver {
	case config.StoreDriverMemory:
		a.logger.Warn("using in-memory store; data is lost on restart")
		st = stores{
			standings: memory.NewTeamStandingRepository(),
			rawData:   memory.NewRawDataRepository(),
			runs:      memory.NewImportRunRepository(),
		}
	case config.StoreDriverPostgres:
		db, err := a.openDB(ctx)
		if err != nil {
			return stores{}, err
		}
		st = stores{
			standings: postgres.NewTeamStandingRepository(db),
			rawData:   postgres.NewRawDataRepository(db),
			runs:      postgres.NewImportRunRepository(db),
		}
	default:
		return stores{}, fmt.Errorf("unsupported STORE_DRIVER %q", a.cfg.StoreDriver)
	}

	if a.cfg.CacheEnabled {
		st.standings = cache.NewTeamStandingRepository(st.standings, basecache.NewStore(a.cfg.CacheTTL))
	}
	return st, nil
}

func (a *App) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", NormalizeDBURL(a.cfg.DBURL, a.cfg.DBBinaryParameters),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(a.cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(a.cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(a.cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(a.cfg.DBConnMaxLifetime)
	a.addCloser("postgres", func(context.Context) error { return db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	a.logger.Info("postgres connected", "db_name", dbNameFromURL(a.cfg.DBURL), "max_open_conns", a.cfg.DBMaxOpenConns)
	return db, nil
}

func (a *App) newRunLocker(ctx context.Context) (usecase.RunLocker, error) {
	if !a.cfg.RedisLockEnabled {
		return runlock.NewLocal(), nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.addCloser("redis", func(context.Context) error { return client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	a.logger.Info("redis run lock enabled", "addr", opts.Addr, "ttl", a.cfg.RedisLockTTL.String())
	return runlock.NewRedis(client, runlock.RedisConfig{TTL: a.cfg.RedisLockTTL}, a.logger.Named("runlock")), nil
}

func (a *App) newTokenVerifier() (httpapi.TokenVerifier, error) {
	switch a.cfg.AuthMode {
	case config.AuthModeStatic:
		a.logger.Info("static token auth enabled", "tokens", len(a.cfg.AuthStaticTokens))
		return statictoken.NewVerifier(a.cfg.AuthStaticTokens), nil
	case config.AuthModeAnubis:
		httpClient := &http.Client{
			Timeout:   a.cfg.AnubisTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		return anubis.NewClient(httpClient, anubis.ClientConfig{
			BaseURL:        a.cfg.AnubisBaseURL,
			IntrospectPath: a.cfg.AnubisIntrospectURL,
			AdminKey:       a.cfg.AnubisAdminKey,
			CacheTTL:       a.cfg.AnubisCacheTTL,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          a.cfg.AnubisCircuitEnabled,
				FailureThreshold: a.cfg.AnubisCircuitFailureCount,
				OpenTimeout:      a.cfg.AnubisCircuitOpenTimeout,
				HalfOpenMaxReq:   a.cfg.AnubisCircuitHalfOpenMaxReq,
			},
		}, a.logger.Named("anubis")), nil
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q", a.cfg.AuthMode)
	}
}
