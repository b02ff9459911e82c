package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/kiro-banking-go/internal/app"
	"github.com/lex00/kiro-banking-go/internal/differ"
	"github.com/lex00/kiro-banking-go/internal/nag"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

func newDiffCmd(opts *rootOptions) *cobra.Command {
	var (
		from         string
		to           string
		outputFormat string
		ignoreOrder  bool
	)

	cmd := &cobra.Command{
		Use:   "diff [template1 template2]",
		Short: "Compare two environments or two template files",
		Long: `Diff compares two synthesized environments stack by stack, or two
template files given as arguments.

Environment comparisons also compare resource counts per type; a change of
environment is expected to change values only.

Examples:
    kiro-banking diff --from dev --to prod
    kiro-banking diff a.template.json b.template.json
    kiro-banking diff --format json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("diff takes no arguments or two template files, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			diffOpts := differ.Options{IgnoreOrder: ignoreOrder}
			if len(args) == 2 {
				result, err := differ.CompareFiles(args[0], args[1], diffOpts)
				if err != nil {
					return err
				}
				return outputTemplateDiff(cmd.OutOrStdout(), result, outputFormat)
			}
			return runDiff(cmd, from, to, diffOpts, outputFormat)
		},
	}

	cmd.Flags().StringVar(&from, "from", "dev", "Environment to compare from")
	cmd.Flags().StringVar(&to, "to", "prod", "Environment to compare to")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")

	return cmd
}

func synthEnv(name, account string) (*stack.Assembly, error) {
	p, err := profile.Select(name)
	if err != nil {
		return nil, err
	}
	p.EnableSecurityChecks = false
	out, err := app.Synth(p, account, nag.Options{})
	if err != nil {
		return nil, err
	}
	return out.Assembly, nil
}

func runDiff(cmd *cobra.Command, from, to string, opts differ.Options, format string) error {
	account, err := profile.AccountFromEnv()
	if err != nil {
		return err
	}
	a1, err := synthEnv(from, account)
	if err != nil {
		return err
	}
	a2, err := synthEnv(to, account)
	if err != nil {
		return err
	}

	result, err := differ.CompareAssemblies(a1, a2, opts)
	if err != nil {
		return err
	}
	return outputAssemblyDiff(cmd.OutOrStdout(), result, format)
}

func outputTemplateDiff(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result.Diff, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "text":
		writeDiff(w, result, "")
		fmt.Fprintf(w, "%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func outputAssemblyDiff(w io.Writer, result *differ.AssemblyResult, format string) error {
	switch format {
	case "json":
		type stackJSON struct {
			Grouping string `json:"grouping"`
			From     string `json:"from,omitempty"`
			To       string `json:"to,omitempty"`
			Diff     any    `json:"diff"`
			Summary  any    `json:"summary"`
		}
		out := struct {
			Structural bool                 `json:"structural"`
			Stacks     []stackJSON          `json:"stacks"`
			Counts     []differ.CountChange `json:"counts,omitempty"`
		}{Structural: result.Structural(), Counts: result.Counts}
		for _, s := range result.Stacks {
			out.Stacks = append(out.Stacks, stackJSON{
				Grouping: s.Grouping,
				From:     s.From,
				To:       s.To,
				Diff:     s.Result.Diff,
				Summary:  s.Result.Summary,
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		for _, s := range result.Stacks {
			fmt.Fprintf(w, "%s: %d added, %d removed, %d modified\n", s.Grouping,
				s.Result.Summary.Added, s.Result.Summary.Removed, s.Result.Summary.Modified)
			writeDiff(w, s.Result, "  ")
		}
		if len(result.Counts) == 0 {
			fmt.Fprintln(w, "Resource counts: unchanged")
		} else {
			fmt.Fprintln(w, "Resource counts:")
			for _, c := range result.Counts {
				fmt.Fprintf(w, "  %s: %d → %d\n", c.Type, c.From, c.To)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func writeDiff(w io.Writer, result *differ.Result, indent string) {
	for _, e := range result.Diff.Added {
		fmt.Fprintf(w, "%s+ %s (%s)\n", indent, e.Resource, e.Type)
	}
	for _, e := range result.Diff.Removed {
		fmt.Fprintf(w, "%s- %s (%s)\n", indent, e.Resource, e.Type)
	}
	for _, e := range result.Diff.Modified {
		fmt.Fprintf(w, "%s~ %s (%s)\n", indent, e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(w, "%s    %s\n", indent, c)
		}
	}
}
