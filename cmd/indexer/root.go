package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/config"
	logpkg "github.com/kailas-cloud/buyingguide/internal/logger"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
	"github.com/kailas-cloud/buyingguide/internal/version"
)

// app carries state shared by subcommands.
type app struct {
	logLevel    string
	metricsAddr string

	logger   *zap.Logger
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Build and publish the headphone product index",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "",
		"serve builder metrics on this address while running (e.g. :9102)")

	root.AddCommand(newBuildCmd(a), newVerifyCmd(a), newPublishCmd(a), newUnpublishCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	logger, err := logpkg.NewLogger(config.GetEnv(), a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger.With(zap.String("command", cmd.Name()))

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.DBCommandDuration,
	)
	if a.metricsAddr != "" {
		a.serveMetrics()
	}
	return nil
}

// serveMetrics exposes the private registry for scraping during long builds.
func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("serving metrics", zap.String("addr", a.metricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// envOr returns the environment value of key or def.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
