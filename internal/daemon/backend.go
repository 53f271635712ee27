package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/candlelife/candle/internal/backend"
	"github.com/candlelife/candle/internal/config"
	"github.com/candlelife/candle/internal/pg"
	"github.com/candlelife/candle/internal/profile"
	"github.com/candlelife/candle/internal/realtime"
	"github.com/candlelife/candle/internal/store"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const connectTimeout = 15 * time.Second

// Backend is the backend the daemon was configured with.
type Backend struct {
	Name     string
	Querier  backend.TransactionQuerier
	Writer   backend.TransactionWriter
	Caller   backend.Caller
	Realtime backend.Realtime

	close func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func openBackend(p Params, cfg *config.Config, hub *realtime.Hub, clock clockwork.Clock, logger *zap.Logger) (*Backend, error) {
	switch cfg.Backend.Driver {
	case config.DriverPostgres:
		return openPostgres(cfg.Backend.DatabaseURL, hub, logger)
	default:
		return openSQLite(profile.AppDBPath(p.ProfileName), hub, clock, logger)
	}
}

func openSQLite(dbPath string, hub *realtime.Hub, clock clockwork.Clock, logger *zap.Logger) (*Backend, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))

	be := store.NewBackend(db, hub, clock, logger)
	return &Backend{
		Name:     config.DriverSQLite,
		Querier:  be,
		Writer:   be,
		Caller:   be,
		Realtime: be,
		close:    func() { _ = db.Close() },
	}, nil
}

func openPostgres(dsn string, hub *realtime.Hub, logger *zap.Logger) (*Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := pg.Connect(ctx, dsn, hub, logger)
	if err != nil {
		return nil, err
	}
	result, err := client.Migrate()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Info("postgres schema ready", zap.Uint("version", result.Version), zap.Bool("changed", result.Changed))

	if err := client.Listen(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return &Backend{
		Name:     config.DriverPostgres,
		Querier:  client,
		Writer:   client,
		Caller:   client,
		Realtime: client,
		close:    client.Close,
	}, nil
}
