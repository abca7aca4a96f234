// Package app assembles the engine and its services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/venke07/conductor/internal/api"
	"github.com/venke07/conductor/internal/capability"
	"github.com/venke07/conductor/internal/config"
	"github.com/venke07/conductor/internal/logging"
	"github.com/venke07/conductor/internal/lua"
	"github.com/venke07/conductor/internal/orchestrator"
	"github.com/venke07/conductor/internal/provider"
	"github.com/venke07/conductor/internal/router"
	"github.com/venke07/conductor/internal/scheduler"
	"github.com/venke07/conductor/internal/state"
	"github.com/venke07/conductor/internal/state/store"
	"github.com/venke07/conductor/internal/tools"
	"go.uber.org/zap"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *capability.Registry
	Routes    *router.ProviderRouter
	Engine    *orchestrator.Engine
	Tools     *tools.Interpreter
	Runs      *store.RunStore
	Scheduler *scheduler.Scheduler
	Metrics   *prometheus.Registry

	caller  provider.Caller
	closers []func() error
}

type Option func(*App)

// WithCaller replaces the SDK dispatcher, e.g. with a fake in tests.
func WithCaller(c provider.Caller) Option {
	return func(a *App) { a.caller = c }
}

// New wires every service described by cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	a.Registry = reg
	a.Routes = newRoutes(cfg.Providers)
	if a.caller == nil {
		a.caller = newDispatcher(cfg.Providers)
	}
	for name, v := range cfg.Providers.Keys {
		a.Logger.Debug("provider key configured", zap.String("env", name), logging.RedactedString("key", v))
	}

	a.Metrics = prometheus.NewRegistry()
	a.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessions, err := a.newSessionStore(ctx)
	if err != nil {
		return err
	}

	engineOpts := []orchestrator.Option{
		orchestrator.WithContextStore(sessions),
		orchestrator.WithRoutes(a.Routes),
		orchestrator.WithKeyLookup(cfg.KeyLookup()),
		orchestrator.WithMetrics(orchestrator.NewMetrics(a.Metrics)),
		orchestrator.WithLogger(a.Logger.Named("engine")),
	}

	if cfg.Archive.Enabled {
		db, err := store.Open(store.Options{Driver: cfg.Archive.Driver, DataDir: cfg.Archive.DataDir, DSN: cfg.Archive.DSN})
		if err != nil {
			return fmt.Errorf("opening run archive: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Runs = store.NewRunStore(db)
		engineOpts = append(engineOpts, orchestrator.WithArchive(a.Runs))
		a.Logger.Info("run archive opened", zap.String("driver", db.Driver()))
	}

	if cfg.Janitor.Enabled {
		a.Scheduler = scheduler.New(a.Logger.Named("scheduler"))
		task := scheduler.ArchiveJanitor(a.Runs, cfg.Archive.Retention, nil)
		if err := a.Scheduler.AddJob(scheduler.ArchiveJanitorJob, cfg.Janitor.Schedule, task); err != nil {
			return err
		}
	}

	if cfg.Tools.Enabled {
		in, err := a.newTools()
		if err != nil {
			return err
		}
		a.Tools = in
		engineOpts = append(engineOpts, orchestrator.WithTools(in, tools.NewRules(cfg.Tools.Rules)))
	}

	a.Engine = orchestrator.New(a.Registry, a.caller, engineOpts...)
	return nil
}

// newRegistry loads the default catalog and roster plus configured
// additions. A configured agent replaces a default agent with the same id.
func newRegistry(cfg *config.Config) (*capability.Registry, error) {
	catalog := append(capability.DefaultCatalog(), cfg.Capabilities...)
	reg := capability.New(catalog)

	override := make(map[string]bool, len(cfg.Agents))
	for _, ag := range cfg.Agents {
		override[ag.ID] = true
	}
	for _, ag := range capability.DefaultAgents() {
		if override[ag.ID] {
			continue
		}
		if err := reg.Register(ag); err != nil {
			return nil, err
		}
	}
	for _, ag := range cfg.Agents {
		if err := reg.Register(ag); err != nil {
			return nil, fmt.Errorf("configured agent: %w", err)
		}
	}
	return reg, nil
}

func newRoutes(pc config.ProvidersConfig) *router.ProviderRouter {
	routes := router.DefaultRoutes()
	for pattern, r := range pc.Routes {
		routes[pattern] = r
	}
	fallback := router.DefaultFallback()
	if pc.Fallback != nil {
		fallback = *pc.Fallback
	}
	return router.NewProviderRouter(routes, fallback)
}

func newDispatcher(pc config.ProvidersConfig) *provider.Dispatcher {
	httpClient := &http.Client{Timeout: pc.Timeout}
	opts := []provider.DispatcherOption{
		provider.WithClient(router.APIOpenAI, provider.NewOpenAIClient(
			provider.WithOpenAIHTTPClient(httpClient),
			provider.WithOpenAIMaxRetries(pc.MaxRetries),
		)),
		provider.WithClient(router.APIAnthropic, provider.NewAnthropicClient(
			provider.WithAnthropicHTTPClient(httpClient),
			provider.WithAnthropicMaxRetries(pc.MaxRetries),
		)),
	}
	for name, rl := range pc.RateLimits {
		opts = append(opts, provider.WithRateLimit(name, rl.RPS, rl.Burst))
	}
	return provider.NewDispatcher(opts...)
}

func (a *App) newSessionStore(ctx context.Context) (state.Store, error) {
	sc := a.Config.State
	if sc.Backend != config.BackendRedis {
		return state.NewMemoryStore(sc.Capacity, sc.TTL), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     sc.Redis.Addr,
		Password: sc.Redis.Password,
		DB:       sc.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", sc.Redis.Addr, err)
	}
	rs := state.NewRedisStore(rdb, sc.Redis.Prefix, sc.TTL)
	a.closers = append(a.closers, rs.Close)
	a.Logger.Info("redis context store connected", zap.String("addr", sc.Redis.Addr))
	return rs, nil
}

func (a *App) newTools() (*tools.Interpreter, error) {
	tc := a.Config.Tools
	reg := tools.NewRegistry()
	builtins, err := tools.RegisterBuiltins(reg, tools.BuiltinOptions{
		OutputDir:  tc.OutputDir,
		EnableCode: tc.EnableCode,
		Lua:        lua.Options{Timeout: tc.CodeTimeout, Env: tc.CodeEnv},
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, builtins.Close)

	if a.Scheduler != nil {
		if err := scheduler.NewSchedulerTool(a.Scheduler).Register(reg); err != nil {
			return nil, err
		}
	}

	guard := tools.NewGuard()
	if tc.Timeout > 0 {
		guard.Timeout = tc.Timeout
	}
	if tc.MaxResultBytes > 0 {
		guard.MaxResultBytes = tc.MaxResultBytes
	}
	ids := make([]string, 0)
	for _, t := range reg.Tools() {
		ids = append(ids, t.ID)
	}
	a.Logger.Info("tools enabled", zap.Strings("tools", ids), zap.String("output_dir", tc.OutputDir))
	return tools.NewInterpreter(reg, tools.WithGuard(guard), tools.WithLogger(a.Logger.Named("tools"))), nil
}

// Server builds the HTTP API over the app's services.
func (a *App) Server() *api.Server {
	opts := []api.Option{
		api.WithGatherer(a.Metrics),
		api.WithLogger(a.Logger.Named("http")),
		api.WithTimeouts(a.Config.Server.ReadTimeout, a.Config.Server.WriteTimeout),
	}
	if a.Tools != nil {
		opts = append(opts, api.WithTools(a.Tools))
	}
	if a.Runs != nil {
		opts = append(opts, api.WithRuns(a.Runs))
	}
	return api.NewServer(a.Engine, opts...)
}

// Serve starts background jobs and the HTTP server, and blocks until ctx is
// done or the server fails.
func (a *App) Serve(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Start()
		defer a.Scheduler.Stop()
	}
	srv := a.Server()
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(a.Config.Server.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errc
}

// Close releases stores and sandboxes in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
