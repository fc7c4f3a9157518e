// Package cmd implements the catalog command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug mode for all commands
	debug bool
)

// NewRootCommand builds the catalog command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "File ingestion and classification data catalog",
		Long:          `Ingests files dropped into per-source folders, classifies them and serves the catalog over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	root.AddCommand(
		newServeCommand(),
		newIngestCommand(),
		newClassifyCommand(),
		newRunCommand(),
		newMigrateCommand(),
		newObjectsCommand(),
		newGraphCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command until it finishes or a shutdown signal arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

// commandDeps holds what every command needs before it builds components.
type commandDeps struct {
	Config *config.Config
	Logger logger.Logger
}

func newCommandDeps() (*commandDeps, error) {
	cfg, err := bootstrap.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, err
	}
	return &commandDeps{Config: cfg, Logger: log}, nil
}

func (d *commandDeps) close() {
	_ = d.Logger.Sync()
}

// withComponents runs fn with the database and storage wired up.
func withComponents(ctx context.Context, fn func(*bootstrap.Components) error) error {
	deps, err := newCommandDeps()
	if err != nil {
		return err
	}
	defer deps.close()

	comps, err := bootstrap.NewComponents(ctx, deps.Config, deps.Logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	return fn(comps)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalog version %s\n", Version)
		},
	}
}
