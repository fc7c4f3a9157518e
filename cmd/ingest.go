package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
)

func newIngestCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest files from the input folders",
		Long: `Scans every source folder under the input directory, stores new files as
blobs and records them in the catalog. Runs until interrupted unless --once is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				ing := c.Ingestor()
				if !once {
					return ing.Run(cmd.Context())
				}

				result, err := ing.Scan(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"sources=%d files=%d recorded=%d items=%d failed=%d\n",
					result.Sources, result.Files, result.Recorded, result.Items, result.Failed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "scan once and exit")
	return cmd
}
