package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/kiro-banking-go/internal/graph"
)

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var (
		outputFormat string
		stacks       []string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a dependency graph of the stacks",
		Long: `Generate a DOT or Mermaid graph with one cluster per stack. GetAtt edges
are blue; cross-stack imports are dashed.

The output can be rendered with Graphviz:
    kiro-banking graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    kiro-banking graph -f mermaid

Examples:
    kiro-banking graph --env prod
    kiro-banking graph --stack KiroBanking-Network-dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			logger, err := opts.logger()
			if err != nil {
				return err
			}
			out, err := opts.synthesize(logger, false, nil)
			if err != nil {
				return err
			}

			gen := &graph.Generator{Format: graphFormat, Stacks: stacks}
			return gen.Generate(out.Assembly, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().StringSliceVar(&stacks, "stack", nil, "Only graph the named stacks")

	return cmd
}
