// Package app wires configuration, storage, the conversation machine and the
// Telegram handlers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	corecmd "github.com/m3rciful/unilinkup/core/cmd"
	"github.com/m3rciful/unilinkup/core/bootstrap"
	coreconfig "github.com/m3rciful/unilinkup/core/config"
	"github.com/m3rciful/unilinkup/core/logger"
	coretelegram "github.com/m3rciful/unilinkup/core/telegram"
	"github.com/m3rciful/unilinkup/core/telegram/router"
	"github.com/m3rciful/unilinkup/core/telegram/ui"
	"github.com/m3rciful/unilinkup/internal/bot"
	"github.com/m3rciful/unilinkup/internal/config"
	"github.com/m3rciful/unilinkup/internal/conversation"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/metrics"
	"github.com/m3rciful/unilinkup/internal/ops"
	"github.com/m3rciful/unilinkup/internal/store"
)

// Options tune construction. The zero value is what production uses.
type Options struct {
	// LoggerInit replaces logger.InitLogger; tests pass a no-op.
	LoggerInit func(*coreconfig.Config) error
}

// App holds every long-lived component of the bot.
type App struct {
	cfg      *config.Config
	store    *store.Store
	machine  *conversation.Machine
	handlers *bot.Handlers
	registry *coretelegram.Registry
	metrics  *metrics.Metrics
	ops      *ops.Server

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

var _ corecmd.TelegramApp = (*App)(nil)

// Bootstrap adapts New to the core runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(context.Background(), cfg, Options{})
}

// LoadConfig adapts config.Load to the core runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return config.Load(path)
}

// New builds the application and runs the bootstrap seeders.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	locations, err := meetup.NewRoster(cfg.Meetup.Locations)
	if err != nil {
		return nil, fmt.Errorf("app: locations: %w", err)
	}
	friends, err := meetup.NewRoster(cfg.Meetup.Friends)
	if err != nil {
		return nil, fmt.Errorf("app: friends: %w", err)
	}

	a := &App{
		cfg:      cfg,
		store:    store.New(store.Options{MaxPingHistory: cfg.Meetup.MaxPingHistory}),
		registry: coretelegram.NewRegistry(),
		metrics:  metrics.New(),
	}
	a.metrics.WatchStore(a.store)

	a.machine = conversation.New(a.store, conversation.Options{
		Locations:     locations,
		Friends:       friends,
		MaxTimeLength: cfg.Meetup.MaxTimeLength,
		Observer:      a.metrics,
	})

	a.handlers, err = bot.New(bot.Options{
		Machine:        a.machine,
		Store:          a.store,
		ErrorLog:       bot.NewErrorLog(cfg.Meetup.ErrorLogSize),
		IdleWindow:     cfg.Meetup.ConversationTimeout(),
		RecentLimit:    cfg.Meetup.RecentPingsLimit,
		MaxInputLength: cfg.Meetup.MaxInputLength,
		Snapshot:       a.snapshotFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := a.handlers.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	var seeders []bootstrap.Seeder
	if cfg.Snapshot.LoadOnStart {
		seeders = append(seeders, snapshotSeeder(cfg.Snapshot.Path))
	}
	if _, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		LoggerInit: opts.LoggerInit,
		Storage:    a.store,
		Seeders:    seeders,
	}); err != nil {
		a.handlers.Close()
		return nil, err
	}

	if cfg.Ops.Listen != "" {
		a.ops = ops.NewServer(cfg.Ops.Listen, ops.NewRouter(ops.Options{
			Store:    a.store,
			Snapshot: a.snapshotFunc(),
			Errors:   a.handlers.ErrorLog().Stats,
			Metrics:  a.metrics.Handler(),
		}))
	}
	return a, nil
}

func snapshotSeeder(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		st, ok := storage.(*store.Store)
		if !ok {
			return fmt.Errorf("snapshot seeder: unexpected storage %T", storage)
		}
		_, err := st.LoadSnapshot(ctx, path)
		return err
	})
}

// snapshotFunc returns nil when no snapshot path is configured.
func (a *App) snapshotFunc() func(context.Context) (store.SaveResult, error) {
	path := a.cfg.Snapshot.Path
	if path == "" {
		return nil
	}
	backup := a.cfg.Snapshot.Backup
	return func(ctx context.Context) (store.SaveResult, error) {
		return a.store.Checkpoint(ctx, path, backup)
	}
}

// Store exposes the in-memory store.
func (a *App) Store() *store.Store { return a.store }

// Registry exposes the command and callback registry.
func (a *App) Registry() *coretelegram.Registry { return a.registry }

// OpsAddr returns the bound ops address, or "" when the ops server is disabled.
func (a *App) OpsAddr() string {
	if a.ops == nil {
		return ""
	}
	return a.ops.Addr()
}

// TelegramRunOptions assembles middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	var fallbacks ui.FallbackProvider = a.handlers

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handlers.AdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: fallbacks.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{
		UnknownText:     fallbacks.UnknownText(),
		UnknownDocument: fallbacks.UnknownDocument(),
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.metrics.ObserveUpdate),
		Routes:      routes,
		OnError:     a.handlers.ErrorLog().OnError,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Dispatcher != nil {
		a.metrics.WatchSender(rt.Dispatcher)
		if rt.Bot != nil {
			a.handlers.SetNotifier(bot.DispatchNotifier{Dispatcher: rt.Dispatcher, API: rt.Bot})
		}
	}

	janitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopJanitor = cancel
	a.janitorDone = make(chan struct{})
	opts := store.JanitorOptions{
		Interval:      a.cfg.Meetup.JanitorInterval(),
		SessionMaxAge: a.cfg.Meetup.SessionMaxAge(),
		PingMaxAge:    a.cfg.Meetup.PingMaxAge(),
	}
	go func() {
		defer close(a.janitorDone)
		a.store.RunJanitor(janitorCtx, opts)
	}()

	if a.ops != nil {
		if err := a.ops.Start(ctx); err != nil {
			a.stopJanitor()
			<-a.janitorDone
			return fmt.Errorf("app: ops server: %w", err)
		}
	}
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	var opsErr error
	if a.ops != nil {
		opsErr = a.ops.Shutdown(ctx)
	}
	if a.stopJanitor != nil {
		a.stopJanitor()
		<-a.janitorDone
	}
	a.handlers.Close()

	st := a.store.Stats()
	logger.Info(ctx, "app", "store.final",
		slog.Int("sessions", st.Sessions),
		slog.Int("pings", st.Pings),
		slog.Int("errors", a.handlers.ErrorLog().Stats().Total),
	)
	return opsErr
}
