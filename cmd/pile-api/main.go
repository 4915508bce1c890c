package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/pilecalc/pile-api"
	"github.com/pilecalc/pile-api/activitymap"
	"github.com/pilecalc/pile-api/config"
	"github.com/pilecalc/pile-api/logging"
	"github.com/pilecalc/pile-api/metrics"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pile-api: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
		Ver:    cfg.App.Version,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync()

	logger := logging.New(zl)
	logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(cfg.Redacted()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pileapi.OpenDB(ctx, pileapi.DBOptions{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		Debug:        cfg.DB.Debug,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := pileapi.Migrate(ctx, db.DB, cfg.DB.Driver); err != nil {
			return err
		}
	}

	repo := pileapi.NewRepositoryManager(db)
	repo.MustValidate()

	tokens, err := pileapi.NewTokenServiceFromConfig(cfg.Auth, logger.Named("token"))
	if err != nil {
		return err
	}

	collector := metrics.New()
	sink := pileapi.MultiActivitySink{
		collector,
		activitymap.LogSink(logger.Named("audit")),
	}

	hasher := pileapi.NewBcryptHasher(cfg.Auth.GetBcryptCost())

	provider := pileapi.NewUserProvider(repo.Users(), hasher).
		WithLogger(logger.Named("user_provider")).
		WithActivitySink(sink).
		WithStrictActivityTracking(cfg.Auth.GetStrictActivityTracking())

	auther := pileapi.NewAuthenticator(provider, repo.Users(), tokens).
		WithLogger(logger.Named("auth")).
		WithActivitySink(sink)

	ctrl := pileapi.NewAuthController(auther, repo, hasher, cfg.Auth,
		pileapi.WithControllerLogger(logger.Named("http")),
		pileapi.WithControllerActivitySink(sink),
	)

	opts := pileapi.AppOptions{
		Logger:       logger.Named("http"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}
	if cfg.Metrics.Enabled {
		opts.Middleware = []fiber.Handler{collector.Middleware()}
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = collector.Handler()
	}

	srv := pileapi.NewServer(ctrl, opts)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		zl.Info("http listening", zap.String("addr", addr))
		errCh <- srv.Serve(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
