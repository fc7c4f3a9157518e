package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the catalog schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := newCommandDeps()
			if err != nil {
				return err
			}
			defer deps.close()
			return database.MigrateDown(bootstrap.DatabaseConfig(deps.Config), steps, deps.Logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(_ *cobra.Command, _ []string) error {
				deps, err := newCommandDeps()
				if err != nil {
					return err
				}
				defer deps.close()
				return database.MigrateUp(bootstrap.DatabaseConfig(deps.Config), deps.Logger)
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				deps, err := newCommandDeps()
				if err != nil {
					return err
				}
				defer deps.close()

				version, dirty, err := database.MigrationVersion(bootstrap.DatabaseConfig(deps.Config), deps.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}
