package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for linting the
// synthesized templates with cfn-lint-go.
func newValidateCmd(opts *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint the synthesized templates with cfn-lint",
		Long: `Validate synthesizes the selected environment to a temporary directory
and runs cfn-lint over every template. Lint errors exit with code 2;
warnings are reported only.

Examples:
    kiro-banking validate
    kiro-banking validate --env prod --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *rootOptions, format string) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	out, err := opts.synthesize(logger, false, nil)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "kiro-banking-validate-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	lintResult, err := validation.ValidateAssembly(out.Assembly, dir)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result := kb.ValidateResult{
		Success:   lintResult.Passed(),
		Stacks:    len(lintResult.Stacks),
		Resources: out.Assembly.ResourceCount(),
	}
	for _, s := range lintResult.Stacks {
		for _, e := range s.Result.Errors {
			result.Errors = append(result.Errors, s.Stack+": "+e)
		}
		for _, w := range s.Result.Warnings {
			result.Warnings = append(result.Warnings, s.Stack+": "+w)
		}
	}

	if err := outputValidateResult(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}
	if !result.Success {
		return errIssuesFound
	}
	return nil
}

func outputValidateResult(w io.Writer, result kb.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d stacks, %d resources\n", result.Stacks, result.Resources)
		} else {
			fmt.Fprintf(w, "Validation failed: %d error(s)\n", len(result.Errors))
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
