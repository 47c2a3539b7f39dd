package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/client"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/config"
	"github.com/teenjuna/sendbuf/cmd/sendbuf/internal/logging"
)

type produceOptions struct {
	server   string
	count    int
	workers  int
	interval time.Duration
	timeout  time.Duration
	prefix   string
	flush    bool
	logLevel string
}

func newProduceCommand() *cobra.Command {
	var opts produceOptions

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Post items to a running server",
		Example: `  # Produce 10 items, one per second
  sendbuf produce --count=10 --interval=1s

  # Produce 1000 items from 8 concurrent workers and flush the rest
  sendbuf produce --count=1000 --workers=8 --flush`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.count < 1 {
				return fmt.Errorf("count can't be < 1")
			}
			if opts.workers < 1 {
				return fmt.Errorf("workers can't be < 1")
			}
			if opts.interval < 0 {
				return fmt.Errorf("interval can't be < 0")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLogger, err := logging.New(config.LogConfig{Level: opts.logLevel})
			if err != nil {
				return fmt.Errorf("new logger: %w", err)
			}
			defer closeLogger()

			c := client.New(opts.server, opts.timeout, 3, logger)
			return produce(cmd.Context(), c, opts, logger)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "http://127.0.0.1:8080", "URL of the server")
	cmd.Flags().IntVar(&opts.count, "count", 1, "Number of items to produce")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "Number of concurrent requests")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Delay between items")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Timeout of a request")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "item", "Prefix of item descriptions")
	cmd.Flags().BoolVar(&opts.flush, "flush", false, "Request a flush after producing")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return cmd
}

func produce(ctx context.Context, c *client.Client, opts produceOptions, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	for i := range opts.count {
		if i > 0 && opts.interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		desc := fmt.Sprintf("%s-%d", opts.prefix, i+1)
		g.Go(func() error {
			item, err := c.Add(ctx, desc)
			if err != nil {
				return fmt.Errorf("add %s: %w", desc, err)
			}
			logger.Debug("item produced", zap.String("id", item.ID), zap.String("desc", item.Desc))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if opts.flush {
		if err := c.Flush(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}

	logger.Info("items produced", zap.Int("count", opts.count))
	return nil
}
