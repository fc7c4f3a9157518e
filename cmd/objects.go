package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

func newObjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "Inspect and manage catalog entries",
	}
	cmd.AddCommand(
		newObjectsListCommand(),
		newObjectsResetCommand(),
		newObjectsResetErrorsCommand(),
		newObjectsStatsCommand(),
	)
	return cmd
}

func newObjectsListCommand() *cobra.Command {
	var (
		status string
		filter domain.Filter
		tags   string
		page   domain.Page
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				filter.Status = domain.Status(status)
				if !filter.Status.Valid() {
					return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
				}
			}
			for t := range strings.SplitSeq(tags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					filter.Tags = append(filter.Tags, t)
				}
			}

			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				total, err := c.Database.Catalog.Count(cmd.Context(), filter)
				if err != nil {
					return err
				}
				objects, err := c.Database.Catalog.List(cmd.Context(), filter, page)
				if err != nil {
					return err
				}
				renderObjects(cmd.OutOrStdout(), objects, total)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&status, "status", "", "filter by status (new, processing, classified, error)")
	flags.StringVar(&filter.Type, "type", "", "filter by exact type")
	flags.StringVar(&filter.Source, "source", "", "filter by exact source")
	flags.StringVar(&filter.NameContains, "name", "", "filter by name substring")
	flags.StringVar(&tags, "tags", "", "comma-separated tag substrings, all must match")
	flags.IntVar(&page.Limit, "limit", domain.DefaultPageLimit, "page size")
	flags.IntVar(&page.Offset, "offset", 0, "page offset")
	return cmd
}

func newObjectsResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Move one entry from error back to new",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidID, args[0])
			}

			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				ok, resetErr := c.Database.Catalog.Reset(cmd.Context(), id.String())
				if resetErr != nil {
					return resetErr
				}
				if !ok {
					return errors.New("no entry in status error with that id")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", id)
				return nil
			})
		},
	}
}

func newObjectsResetErrorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-errors",
		Short: "Move every entry in error back to new",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				n, err := c.Database.Catalog.ResetErrors(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %d entries\n", n)
				return nil
			})
		},
	}
}

func newObjectsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count entries per status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				counts, err := c.Database.Catalog.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				renderStatusCounts(cmd.OutOrStdout(), counts)
				return nil
			})
		},
	}
}
