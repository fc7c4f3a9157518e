package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/catalog/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/catalog/internal/graph"
)

func newGraphCommand() *cobra.Command {
	var minFreq, minStrength int

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the tag co-occurrence graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd.Context(), func(c *bootstrap.Components) error {
				g, err := c.GraphBuilder().Build(cmd.Context(), minFreq, minStrength)
				if err != nil {
					return err
				}
				renderGraph(cmd.OutOrStdout(), g)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&minFreq, "min-freq", graph.DefaultMinFrequency, "minimum tag frequency")
	cmd.Flags().IntVar(&minStrength, "min-strength", graph.DefaultMinLinkStrength, "minimum co-occurrence count")
	return cmd
}
