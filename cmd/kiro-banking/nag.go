package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/nag"
)

func newNagCmd(opts *rootOptions) *cobra.Command {
	var (
		outputFormat   string
		disabled       []string
		showSuppressed bool
	)

	cmd := &cobra.Command{
		Use:   "nag",
		Short: "Run the security checks",
		Long: `Nag synthesizes the selected environment and runs the security checks
regardless of the profile's enableSecurityChecks setting.

Rules:
    KBS000: Suppressions must carry a reason
    KBS001: KMS keys rotate
    KBS002: KMS keys are retained
    KBS003: Buckets block all public access
    KBS004: Buckets deny requests without TLS
    KBS005: Buckets are encrypted
    KBS006: Buckets write server access logs
    KBS007: No internet or NAT gateways
    KBS008: VPCs have flow logs
    KBS009: No unrestricted security group ingress
    KBS010: No allow-all security group egress
    KBS011: Trails validate log files in every region
    KBS012: Trails are KMS encrypted
    KBS013: Topics are KMS encrypted
    KBS014: Log groups use a customer-managed key (warning)
    KBS015: Alarms treat missing data as not breaching (warning)
    KBS016: Buckets use a customer-managed key (warning)

Exits with code 2 when an unsuppressed error remains.

Examples:
    kiro-banking nag --env prod
    kiro-banking nag --show-suppressed
    kiro-banking nag --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNag(cmd, opts, outputFormat, disabled, showSuppressed)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "Rule IDs to skip")
	cmd.Flags().BoolVar(&showSuppressed, "show-suppressed", false, "Also list suppressed findings")

	return cmd
}

func runNag(cmd *cobra.Command, opts *rootOptions, format string, disabled []string, showSuppressed bool) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	out, err := opts.synthesize(logger, false, nil)
	if err != nil {
		return err
	}

	result := nag.Run(out.Assembly, nag.Options{DisabledRules: disabled})
	report := kb.NagResult{Success: !result.HasErrors()}
	for _, f := range result.Findings {
		report.Findings = append(report.Findings, toNagFinding(f))
	}
	for _, s := range result.Suppressed {
		finding := toNagFinding(s.Finding)
		finding.Reason = s.Reason
		report.Suppressed = append(report.Suppressed, finding)
	}

	if err := outputNagResult(cmd.OutOrStdout(), report, format, showSuppressed); err != nil {
		return err
	}
	if !report.Success {
		return errIssuesFound
	}
	return nil
}

func outputNagResult(w io.Writer, result kb.NagResult, format string, showSuppressed bool) error {
	switch format {
	case "json":
		if !showSuppressed {
			result.Suppressed = nil
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Findings) == 0 {
			fmt.Fprintln(w, "No issues found.")
		}
		for _, f := range result.Findings {
			fmt.Fprintf(w, "%s: %s: %s [%s]\n", f.Stack, f.Severity, f.Message, f.Rule)
		}
		if showSuppressed {
			for _, f := range result.Suppressed {
				fmt.Fprintf(w, "%s: suppressed: %s [%s] (%s)\n", f.Stack, f.Message, f.Rule, f.Reason)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
