package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/candlelife/candle/internal/auth"
	"github.com/candlelife/candle/internal/config"
	"github.com/candlelife/candle/internal/daemon"
	"github.com/candlelife/candle/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{ProfileName: profileName, Config: cfg}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}

// loadConfig reads config.toml and, on first run, generates the secret the
// daemon verifies access tokens with.
func loadConfig() (*config.Config, error) {
	path := profile.ConfigPath()
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if cfg.Auth.JWTSecret != "" {
		return cfg, nil
	}
	secret, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}
	cfg.Auth.JWTSecret = secret
	if err := config.Save(path, cfg); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "generated auth.jwt_secret in %s\n", path)
	return cfg, nil
}
