// Command hnpulse runs the aggregation daemon: scheduled cycles, retention,
// feed publishing and the optional HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/api"
	"github.com/ibeckermayer/hnpulse/internal/app"
	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/logging"
	"github.com/ibeckermayer/hnpulse/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "config file (default: user config dir)")
	runOnce := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "hnpulse: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	cfg, loadErr := config.LoadFrom(path)
	created := false
	if loadErr != nil {
		cfg = config.Default()
		if os.IsNotExist(loadErr) {
			// First run - create default config
			created = cfg.SaveTo(path) == nil
		}
	}
	cfg.ApplyEnv()

	logger := logging.New(os.Stderr, cfg.Log.Level)
	defer logger.Sync()

	switch {
	case created:
		logger.Info("created default config", zap.String("path", path))
	case loadErr != nil:
		logger.Warn("could not load config, using defaults", zap.String("path", path), zap.Error(loadErr))
	}

	if err := run(cfg, path, *runOnce, logger); err != nil {
		logger.Fatal("hnpulse stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, configPath string, once bool, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a := app.New(cfg, components, logger, app.WithConfigPath(configPath))
	defer a.Close()

	if once {
		if _, err := a.Evict(ctx); err != nil {
			logger.Error("eviction failed", zap.Error(err))
		}
		_, err := a.RunCycle(ctx)
		return err
	}

	s, err := scheduler.New(cfg.Schedule.Timezone, logger)
	if err != nil {
		return err
	}
	if err := a.Schedule(s); err != nil {
		return err
	}
	s.Start()

	var srv *http.Server
	if cfg.Server.Enabled {
		srv = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.New(a, logger.Named("api")),
			IdleTimeout:       3 * time.Minute,
			ReadHeaderTimeout: time.Minute,
		}
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api server failed", zap.Error(err))
				cancel()
			}
		}()
		logger.Info("REST server started", zap.String("address", srv.Addr))
	}

	// SIGHUP reloads the config without restarting.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	logger.Info("hnpulse started", zap.String("cycle", cfg.Schedule.Cycle), zap.String("evict", cfg.Schedule.Evict))

	for {
		select {
		case <-hup:
			if err := a.ReloadConfig(ctx); err != nil {
				logger.Error("config reload failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Warn("shutting down")
			if srv != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Info("server shutdown", zap.Error(err))
				}
				done()
			}
			<-s.Stop().Done()
			return nil
		}
	}
}
