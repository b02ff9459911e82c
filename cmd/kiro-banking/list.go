package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stacks and resources",
		Long: `List synthesizes the selected environment and displays every stack with
its resources in deployment order.

Examples:
    kiro-banking list
    kiro-banking list --env prod --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			out, err := opts.synthesize(logger, false, nil)
			if err != nil {
				return err
			}
			return outputListResult(cmd.OutOrStdout(), listResources(out.Assembly), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// listResources lists resources by stack in deployment order, then by
// logical ID.
func listResources(a *stack.Assembly) kb.ListResult {
	result := kb.ListResult{Resources: make([]kb.ListResource, 0, a.ResourceCount())}
	for _, s := range a.Stacks {
		names := make([]string, 0, len(s.Template.Resources))
		for name := range s.Template.Resources {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			result.Resources = append(result.Resources, kb.ListResource{
				Stack: s.Name,
				Name:  name,
				Type:  s.Template.Resources[name].Type,
			})
		}
	}
	return result
}

func outputListResult(w io.Writer, result kb.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		current := ""
		for _, res := range result.Resources {
			if res.Stack != current {
				if current != "" {
					fmt.Fprintln(w)
				}
				current = res.Stack
				fmt.Fprintf(w, "%s:\n", res.Stack)
			}
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}
		fmt.Fprintf(w, "\n%d resources\n", len(result.Resources))

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
