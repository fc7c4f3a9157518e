package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run ingestion, classification and the HTTP API together",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				return runAll(cmd.Context(), c)
			})
		},
	}
}

// runAll runs every loop until ctx is cancelled or one of them fails.
func runAll(ctx context.Context, c *bootstrap.Components) error {
	poller, err := c.Poller()
	if err != nil {
		return err
	}
	ing := c.Ingestor()
	server := c.HTTPServer()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ing.Run(ctx) })
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return server.RunWithGracefulShutdown(ctx) })

	c.Logger.Info("Catalog running", logger.Int("port", c.Config.Server.Port))

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
