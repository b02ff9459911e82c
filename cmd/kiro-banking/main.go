// Command kiro-banking synthesizes the Kiro banking environment into
// CloudFormation stacks.
//
// Usage:
//
//	kiro-banking synth --env prod -o cdk.out   Write the assembly
//	kiro-banking nag --env dev                 Run the security checks
//	kiro-banking validate --env dev            Lint templates with cfn-lint
//	kiro-banking diff --from dev --to prod     Compare two environments
//	kiro-banking version                       Show version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errIssuesFound makes main exit with code 2. The command has already
// reported the issues.
var errIssuesFound = errors.New("issues found")

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "kiro-banking",
		Short: "Synthesize the Kiro banking environment",
		Long: `kiro-banking synthesizes the MAS TRM aligned environment for Kiro
developer workspaces into four CloudFormation stacks: encryption keys, an
isolated network, audit monitoring and AWS Config compliance rules.

The target account is read from AWS_ACCOUNT_ID:

    AWS_ACCOUNT_ID=123456789012 kiro-banking synth --env prod -o cdk.out`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.env, "env", "e", "dev", "Environment profile: dev or prod")
	rootCmd.PersistentFlags().StringVarP(&opts.profileFile, "profile", "p", "", "Profile YAML file (overrides --env)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Diagnostic log format: text or json")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newNagCmd(opts),
		newValidateCmd(opts),
		newListCmd(opts),
		newDiffCmd(opts),
		newGraphCmd(opts),
		newWatchCmd(opts),
		newPublishCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errIssuesFound) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kiro-banking %s\n", getVersion())
		},
	}
}
