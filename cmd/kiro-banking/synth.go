package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/app"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/template"
)

func newSynthCmd(opts *rootOptions) *cobra.Command {
	var (
		outputDir    string
		outputFormat string
		resultFormat string
		disabled     []string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the CloudFormation stacks",
		Long: `Synth declares the four stacks for the selected environment, runs the
security checks and writes the templates plus a manifest.

Without --output the templates are printed to stdout. Security check
warnings are printed to stderr; errors fail the command with exit code 2.
With --output, --result json prints a machine-readable summary instead of
the text line.

Examples:
    kiro-banking synth
    kiro-banking synth --env prod -o cdk.out
    kiro-banking synth --profile staging.yaml -f yaml -o cdk.out
    kiro-banking synth -o cdk.out --result json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, opts, outputDir, outputFormat, resultFormat, disabled)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: print templates)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().StringVar(&resultFormat, "result", "text", "Summary format with --output: text or json")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "Security check rule IDs to skip")

	return cmd
}

func runSynth(cmd *cobra.Command, opts *rootOptions, outputDir, format, resultFormat string, disabled []string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format: %s", format)
	}
	if resultFormat != "text" && resultFormat != "json" {
		return fmt.Errorf("unknown result format: %s", resultFormat)
	}
	if resultFormat == "json" && outputDir == "" {
		return errors.New("--result json requires --output")
	}
	logger, err := opts.logger()
	if err != nil {
		return err
	}

	out, err := opts.synthesize(logger, true, disabled)
	if errors.Is(err, app.ErrSecurityChecks) {
		printFindings(cmd.ErrOrStderr(), out.Checks.Findings)
		fmt.Fprintf(cmd.ErrOrStderr(), "synthesis failed: %d security check error(s)\n", len(out.Checks.Errors()))
		if resultFormat == "json" {
			result := kb.SynthResult{OutputDir: outputDir}
			for _, f := range out.Checks.Errors() {
				result.Errors = append(result.Errors, f.File+": "+f.Message+" ["+f.Rule+"]")
			}
			if err := writeSynthResult(cmd.OutOrStdout(), result); err != nil {
				return err
			}
		}
		return errIssuesFound
	}
	if err != nil {
		return err
	}
	printFindings(cmd.ErrOrStderr(), out.Warnings())

	if outputDir == "" {
		return printTemplates(cmd.OutOrStdout(), out.Assembly, format)
	}

	written, err := out.Assembly.Write(outputDir, format)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Debug("wrote", "path", path)
	}

	if resultFormat == "json" {
		manifest := out.Assembly.Manifest(format)
		result := kb.SynthResult{
			Success:   true,
			OutputDir: outputDir,
			Stacks:    out.Assembly.StackNames(),
			Manifest:  &manifest,
		}
		for _, f := range out.Warnings() {
			result.Warnings = append(result.Warnings, toNagFinding(f))
		}
		return writeSynthResult(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synthesized %d stacks (%d resources) to %s\n",
		len(out.Assembly.Stacks), out.Assembly.ResourceCount(), outputDir)
	return nil
}

func writeSynthResult(w io.Writer, result kb.SynthResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printTemplates writes every template to w: one JSON object keyed by stack
// name, or one YAML document per stack.
func printTemplates(w io.Writer, a *stack.Assembly, format string) error {
	if format == "json" {
		templates := make(map[string]*kb.Template, len(a.Stacks))
		for _, s := range a.Stacks {
			templates[s.Name] = s.Template
		}
		data, err := json.MarshalIndent(templates, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	for i, s := range a.Stacks {
		data, err := template.ToYAML(s.Template)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", s.Name, err)
		}
		if i > 0 {
			fmt.Fprintln(w, "---")
		}
		fmt.Fprintf(w, "# %s\n%s", s.Name, data)
	}
	return nil
}
