package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pkt.systems/fos"
	"pkt.systems/pslog"
)

// submain builds the root command, binds signal-driven cancellation, and
// runs it, mirroring the teacher's cmd/lockd/app.go submain shape.
func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("FOS_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "fos")

	cmd := newRootCommand(baseLogger)
	cmd.AddCommand(newVersionCommand())
	ctx = withSignalCancel(ctx)
	if _, err := cmd.ExecuteContextC(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

// newRootCommand binds spec §6's CLI-arg/env-var/process-property/default
// precedence table via pflag+viper, in the same bindFlag-then-AutomaticEnv
// shape the teacher uses.
func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	var cfg fos.Config

	cmd := &cobra.Command{
		Use:           "fos",
		Short:         "fos is a JSON-RPC file-operation service backed by a distributed lease coordinator",
		SilenceErrors: true,
		Example: `
  # Redis-coordinated fleet deployment
  fos --root-dir /srv/fos-data --redis-host redis.internal --redis-port 6379 --redis-password secret

  # Single-host disk-coordinated deployment
  fos --root-dir /srv/fos-data --coordinator-backend disk

  # In-memory coordinator (tests/dev only)
  fos --root-dir /srv/fos-data --coordinator-backend memory
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := baseLogger
			ctx := cmd.Context()
			cmd.SilenceUsage = true

			if err := bindConfig(&cfg); err != nil {
				return err
			}

			logLevel := strings.TrimSpace(viper.GetString("log-level"))
			if logLevel == "" {
				logLevel = "info"
			}
			if level, ok := pslog.ParseLevel(logLevel); ok {
				logger = logger.LogLevel(level)
			}

			logger.Info("starting fos", "pid", os.Getpid(), "root_dir", cfg.RootDir, "listen", cfg.Listen,
				"max_body", humanize.Bytes(uint64(cfg.MaxBodyBytes)))

			server, err := fos.NewServer(cfg, fos.WithLogger(logger))
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown failed", "error", err)
				}
			}()

			err = server.Start()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("root-dir", "r", "", "filesystem root every caller path is resolved against (required)")
	flags.String("coordinator-backend", "redis", "coordinator backend (redis, disk, memory)")
	flags.String("redis-host", "", "lock coordinator host")
	flags.Int("redis-port", 6379, "lock coordinator port")
	flags.String("redis-password", "", "lock coordinator password")
	flags.String("listen", fos.DefaultListen, "HTTP listen address")
	flags.String("rpc-path", fos.DefaultRPCPath, "JSON-RPC endpoint mount path")
	flags.String("max-body-bytes", strings.ReplaceAll(humanize.Bytes(uint64(fos.DefaultMaxBodyBytes)), " ", ""), "maximum accepted request body size (e.g. 32MiB)")
	flags.Duration("lease-ttl", fos.DefaultLeaseTTL, "lease TTL setting (appends currently always use a 30s lease)")
	flags.Bool("tracing-enabled", false, "enable OpenTelemetry span instrumentation")
	flags.String("metrics-listen", "", "any non-empty value serves Prometheus metrics at /metrics on the main listener (empty disables /metrics)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")

	bindFlag := func(name string) {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := viper.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("FOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// spec §6 names specific env var / property-key pairs for its four
	// required keys; bind those explicitly in addition to the generic
	// FOS_<FLAG_NAME> mapping AutomaticEnv already provides.
	_ = viper.BindEnv("root-dir", "FOS_ROOT_DIR")
	_ = viper.BindEnv("redis-host", "FOS_REDIS_HOST")
	_ = viper.BindEnv("redis-port", "FOS_REDIS_PORT")
	_ = viper.BindEnv("redis-password", "FOS_REDIS_PASSWORD")
	viper.SetDefault("fos.root.dir", "")
	viper.SetDefault("fos.redis.host", "")
	viper.SetDefault("fos.redis.port", 6379)
	viper.SetDefault("fos.redis.password", "")

	for _, name := range []string{
		"root-dir", "coordinator-backend", "redis-host", "redis-port", "redis-password",
		"listen", "rpc-path", "max-body-bytes", "lease-ttl", "tracing-enabled",
		"metrics-listen", "log-level",
	} {
		bindFlag(name)
	}

	return cmd
}

// bindConfig resolves the fully-reconciled configuration from viper (which
// has already applied the CLI-arg > env-var > process-property > default
// precedence spec §6 requires) into cfg.
func bindConfig(cfg *fos.Config) error {
	cfg.RootDir = firstNonEmpty(viper.GetString("root-dir"), viper.GetString("fos.root.dir"))
	cfg.CoordinatorBackend = viper.GetString("coordinator-backend")
	cfg.CoordinatorHost = firstNonEmpty(viper.GetString("redis-host"), viper.GetString("fos.redis.host"))
	cfg.CoordinatorPort = firstNonZeroInt(viper.GetInt("redis-port"), viper.GetInt("fos.redis.port"))
	cfg.CoordinatorPassword = firstNonEmpty(viper.GetString("redis-password"), viper.GetString("fos.redis.password"))
	cfg.Listen = viper.GetString("listen")
	cfg.RPCPath = viper.GetString("rpc-path")
	maxBody, err := humanize.ParseBytes(viper.GetString("max-body-bytes"))
	if err != nil {
		return fmt.Errorf("parse max-body-bytes: %w", err)
	}
	cfg.MaxBodyBytes = int64(maxBody)
	cfg.LeaseTTL = viper.GetDuration("lease-ttl")
	cfg.TracingEnabled = viper.GetBool("tracing-enabled")
	cfg.MetricsListen = viper.GetString("metrics-listen")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
