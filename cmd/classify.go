package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
)

func newClassifyCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify new catalog entries",
		Long: `Claims entries in status new, classifies them and stores tags, score and
status. Runs until interrupted unless --once is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				poller, err := c.Poller()
				if err != nil {
					return err
				}
				if !once {
					return poller.Run(cmd.Context())
				}

				results, err := poller.ProcessPending(cmd.Context())
				if err != nil {
					return err
				}
				renderResults(cmd.OutOrStdout(), results)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "process one batch and exit")
	return cmd
}
