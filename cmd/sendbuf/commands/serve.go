package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/logging"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/server"
	"github.com/teenjuna/sendbuf/codec/json"
	"github.com/teenjuna/sendbuf/sink"
	"github.com/teenjuna/sendbuf/sink/kafka"
	"github.com/teenjuna/sendbuf/sink/sqlite"
	"github.com/teenjuna/sendbuf/sink/writer"
)

func newServeCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the buffer behind an HTTP API",
		Example: `  # Serve with defaults: a buffer of 5 items and a 5 seconds send
  sendbuf serve

  # Store sent batches in SQLite
  sendbuf serve --sink=sqlite

  # Use a config file, overriding its capacity
  sendbuf serve --config=sendbuf.yaml --capacity=10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), *cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	cmd.Flags().String("addr", defaults.Server.Addr, "Address to listen on")
	cmd.Flags().Int("capacity", defaults.Buffer.Capacity, "Number of items in a batch")
	cmd.Flags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	cmd.Flags().String("log-file", defaults.Log.File, "Also write logs to this file, rotated")
	cmd.Flags().String("sink", defaults.Sink.Kind, "Where sent batches go: none, stdout, sqlite, kafka")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) (err error) {
	logger, closeLogger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("new logger: %w", err)
	}
	defer func() {
		err = errors.Join(err, closeLogger())
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	out, err := newSink(cfg.Sink, logger)
	if err != nil {
		return fmt.Errorf("new sink: %w", err)
	}
	if out != nil {
		defer func() {
			err = errors.Join(err, out.Close())
		}()
	}

	// Sends are not canceled on a signal, so the buffer can be drained into the sink.
	srv := server.New(context.WithoutCancel(ctx), cfg, logger, registry, out)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.Int("capacity", cfg.Buffer.Capacity),
		zap.String("sink", cfg.Sink.Kind),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		return errors.Join(
			httpServer.Shutdown(shutdownCtx),
			srv.Close(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newSink(cfg config.SinkConfig, logger *zap.Logger) (sink.Sink[server.Item], error) {
	switch cfg.Kind {
	case "stdout":
		return writer.New[server.Item](os.Stdout, json.New[server.Item]()), nil

	case "sqlite":
		storage, err := sqlite.New(func(c *sqlite.Config) {
			c.File(cfg.SQLite.File)
			c.Durable(cfg.SQLite.Durable)
		})
		if err != nil {
			return nil, fmt.Errorf("new storage: %w", err)
		}
		return sqlite.NewSink[server.Item](storage, json.New[server.Item]()), nil

	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, func(c *kafka.Config) {
			c.Compression(cfg.Kafka.Compression)
			c.Idempotent(cfg.Kafka.Idempotent)
			if cfg.Kafka.SASLMechanism != "" {
				c.SASL(cfg.Kafka.SASLMechanism, cfg.Kafka.SASLUsername, cfg.Kafka.SASLPassword)
			}
		})
		if err != nil {
			return nil, err
		}
		return kafka.New[server.Item](producer, cfg.Kafka.Topic, json.New[server.Item](), logger), nil

	default:
		return nil, nil
	}
}
