package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/googydeaath/dbhandle/internal/config"
	"github.com/googydeaath/dbhandle/internal/database"
	"github.com/googydeaath/dbhandle/internal/handle"
	"github.com/googydeaath/dbhandle/internal/logging"
	"github.com/googydeaath/dbhandle/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "dbhandle",
		Usage: "Open and supervise a MongoDB connection handle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"DBHANDLE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "MongoDB connection string",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "database name",
			},
			&cli.StringSliceFlag{
				Name:  "collection",
				Usage: "collection to resolve on connect (repeatable)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "address to serve /metrics on, empty to disable",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect and hold the connection until interrupted",
				Action: runCommand,
			},
			{
				Name:   "check",
				Usage:  "connect, report the status and disconnect",
				Action: checkCommand,
			},
		},
	}
}

// overrides maps explicitly set flags onto configuration keys
func overrides(c *cli.Context) map[string]any {
	values := make(map[string]any)
	if c.IsSet("address") {
		values["mongo.address"] = c.String("address")
	}
	if c.IsSet("database") {
		values["mongo.database"] = c.String("database")
	}
	if c.IsSet("collection") {
		values["mongo.collections"] = c.StringSlice("collection")
	}
	if c.IsSet("log-level") {
		values["log.level"] = c.String("log-level")
	}
	if c.IsSet("metrics-listen") {
		values["metrics.listen"] = c.String("metrics-listen")
	}
	return values
}

type instance struct {
	cfg      config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	handle   *handle.Handle
}

func setup(c *cli.Context) (*instance, error) {
	cfg, err := config.Load(c.String("config"), overrides(c))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	h, err := handle.Open(database.NewMongoDriver(), handle.Options{
		Address:        cfg.Mongo.Address,
		Database:       cfg.Mongo.Database,
		Collections:    cfg.Mongo.Collections,
		ConnectTimeout: cfg.Mongo.Timeout.Connect,
		CloseTimeout:   cfg.Mongo.Timeout.Close,
		Observer:       collector,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &instance{cfg: cfg, logger: logger, registry: registry, handle: h}, nil
}

func runCommand(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	logger := rt.logger

	logger.WithField("handle_id", rt.handle.ID()).Info("Starting dbhandle")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	go func() {
		select {
		case sig := <-signalChan:
			logger.WithField("signal", sig).Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if rt.cfg.Metrics.Listen != "" {
		srv := serveMetrics(rt.cfg.Metrics.Listen, rt.registry, logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("Error stopping metrics server")
			}
		}()
	}

	status, err := rt.handle.Connected().Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WithField("status", status.String()).Warn("Interrupted while connecting")
			return nil
		}
		return err
	}

	logger.WithField("collections", rt.handle.Collections()).Info("Connection held, waiting for shutdown signal")
	<-ctx.Done()

	return closeHandle(rt.handle, logger)
}

func checkCommand(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}

	status, err := rt.handle.Connected().Wait(c.Context)
	fmt.Fprintf(c.App.Writer, "address=%s status=%s\n", rt.handle.Address(), status)
	return checkResult(status, err, func() error {
		return closeHandle(rt.handle, rt.logger)
	})
}

// checkResult maps the settled connect status onto the exit path of check.
// A terminal status exits with code 2, an unfinished wait returns its error,
// and a ready handle is closed.
func checkResult(status handle.Status, err error, closeReady func() error) error {
	switch {
	case status.Terminal():
		if err == nil {
			err = fmt.Errorf("connection ended with status %s", status)
		}
		return cli.Exit(err.Error(), 2)
	case err != nil:
		return err
	default:
		return closeReady()
	}
}

func closeHandle(h *handle.Handle, logger *logrus.Logger) error {
	op, err := h.Close()
	if err != nil {
		return err
	}
	if _, err := op.Wait(context.Background()); err != nil {
		return err
	}
	logger.Info("dbhandle shutdown complete")
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("listen", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()

	return srv
}
