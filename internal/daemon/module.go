package daemon

import (
	"context"

	"github.com/candlelife/candle/internal/api"
	"github.com/candlelife/candle/internal/auth"
	"github.com/candlelife/candle/internal/bus"
	"github.com/candlelife/candle/internal/cache"
	"github.com/candlelife/candle/internal/config"
	"github.com/candlelife/candle/internal/httpapi"
	"github.com/candlelife/candle/internal/identity"
	"github.com/candlelife/candle/internal/ledger"
	"github.com/candlelife/candle/internal/lock"
	"github.com/candlelife/candle/internal/logging"
	"github.com/candlelife/candle/internal/presence"
	"github.com/candlelife/candle/internal/profile"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/candlelife/candle/internal/wa"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // nil = load ~/.candle/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideClock,
			provideLock,
			provideHub,
			provideBackend,
			provideAdapter,
			provideCoordinator,
			provideAggregator,
			provideLedger,
			provideTracker,
			provideIdentity,
			provideVerifier,
			provideSessionService,
			provideDebtService,
			providePresenceService,
			provideHTTPServer,
			NewIdentityWatcher,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOrDefault(profile.ConfigPath()); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName), p.ProfileName)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideHub(b *bus.Bus, logger *zap.Logger) *realtime.Hub {
	return realtime.NewHub(b, logger)
}

// provideBackend depends on the lock so that two daemons never migrate the
// same database.
func provideBackend(p Params, cfg *config.Config, _ *lock.Lock, hub *realtime.Hub, clock clockwork.Clock, logger *zap.Logger) (*Backend, error) {
	return openBackend(p, cfg, hub, clock, logger)
}

// provideAdapter returns nil unless presence travels over WhatsApp.
func provideAdapter(p Params, cfg *config.Config, _ *lock.Lock, hub *realtime.Hub, b *bus.Bus, logger *zap.Logger) (*wa.Adapter, error) {
	if cfg.Presence.Transport != config.TransportWhatsApp {
		return nil, nil
	}
	return wa.NewAdapter(context.Background(), profile.WhatsAppDBPath(p.ProfileName), hub, b, logger)
}

func provideCoordinator(clock clockwork.Clock, b *bus.Bus) *cache.Coordinator {
	return cache.NewCoordinator(clock, b)
}

func provideAggregator(be *Backend, coord *cache.Coordinator, cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) *ledger.Aggregator {
	return ledger.NewAggregator(be.Querier, coord, ledger.AggregatorOptions{
		Window:    cfg.Debts.Window.Duration,
		Freshness: cfg.Debts.Freshness.Duration,
		Clock:     clock,
		Logger:    logger,
	})
}

func provideLedger(be *Backend, coord *cache.Coordinator, clock clockwork.Clock, logger *zap.Logger) *ledger.Ledger {
	return ledger.New(be.Writer, be.Caller, coord, clock, logger)
}

func provideTracker(be *Backend, adapter *wa.Adapter, cfg *config.Config, b *bus.Bus, clock clockwork.Clock, logger *zap.Logger) *presence.Tracker {
	opts := presence.Options{
		Decay:  cfg.Presence.Decay.Duration,
		Clock:  clock,
		Bus:    b,
		Logger: logger,
	}
	if adapter != nil {
		return presence.NewTracker(adapter, adapter, opts)
	}
	return presence.NewTracker(be.Caller, be.Realtime, opts)
}

func provideIdentity(b *bus.Bus) *identity.Provider {
	return identity.NewProvider(b)
}

// provideVerifier returns nil when no secret is configured; token sign-in and
// the HTTP API are then unavailable.
func provideVerifier(cfg *config.Config, logger *zap.Logger) (*auth.Verifier, error) {
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, token sign-in disabled")
		return nil, nil
	}
	return auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
}

func provideSessionService(p Params, cfg *config.Config, be *Backend, id *identity.Provider, b *bus.Bus, verifier *auth.Verifier, tracker *presence.Tracker, adapter *wa.Adapter, logger *zap.Logger) *api.SessionService {
	info := api.SessionInfo{
		Profile:           p.ProfileName,
		Backend:           be.Name,
		PresenceTransport: cfg.Presence.Transport,
	}
	var pairer api.Pairer
	if adapter != nil {
		pairer = adapter
	}
	return api.NewSessionService(info, id, b, verifier, tracker, pairer, logger)
}

func provideDebtService(id *identity.Provider, agg *ledger.Aggregator, l *ledger.Ledger) *api.DebtService {
	return api.NewDebtService(id, agg, l)
}

func providePresenceService(id *identity.Provider, tracker *presence.Tracker, b *bus.Bus) *api.PresenceService {
	return api.NewPresenceService(id, tracker, b)
}

func provideHTTPServer(cfg *config.Config, id *identity.Provider, verifier *auth.Verifier, agg *ledger.Aggregator, l *ledger.Ledger, tracker *presence.Tracker, logger *zap.Logger) *httpapi.Server {
	a := httpapi.New(id, verifier, agg, l, tracker, logger)
	return httpapi.NewServer(cfg.HTTP.Addr, a.Routes(), logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, httpSrv *httpapi.Server, watcher *IdentityWatcher, be *Backend, adapter *wa.Adapter, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if _, err := httpSrv.Start(); err != nil {
				return err
			}

			watcher.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if adapter != nil {
				if adapter.IsLoggedIn() {
					go func() {
						if err := adapter.Connect(); err != nil {
							logger.Error("whatsapp auto-connect failed", zap.Error(err))
						}
					}()
				} else {
					logger.Info("whatsapp device not paired, run candlectl pair")
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			watcher.Stop()
			if err := httpSrv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
			if adapter != nil {
				adapter.Disconnect()
			}
			srv.Stop(ctx)
			be.Close()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
