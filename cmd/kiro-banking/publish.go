package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/kiro-banking-go/internal/app"
	"github.com/lex00/kiro-banking-go/internal/publish"
)

// newPublisher is replaced in tests.
var newPublisher = publish.NewFromEnv

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var (
		cfg          publish.Config
		templateFmt  string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Synthesize and upload the assembly to S3",
		Long: `Publish synthesizes the selected environment with security checks and
uploads every template, then the manifest, to S3 under
<prefix>/<env>/. Objects are encrypted with aws:kms.

Credentials come from the default AWS configuration chain.

Examples:
    kiro-banking publish --env prod --bucket kiro-artifacts
    kiro-banking publish --bucket kiro-artifacts --prefix cfn --kms-key alias/artifacts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, cfg, templateFmt, outputFormat)
		},
	}

	cmd.Flags().StringVar(&cfg.Bucket, "bucket", "", "Destination S3 bucket (required)")
	cmd.Flags().StringVar(&cfg.Prefix, "prefix", "", "Key prefix")
	cmd.Flags().StringVar(&cfg.KMSKeyID, "kms-key", "", "KMS key for object encryption (default: bucket key)")
	cmd.Flags().StringVar(&cfg.Region, "region", "", "Bucket region (default: from AWS config)")
	cmd.Flags().StringVarP(&templateFmt, "template-format", "t", "json", "Template format: json or yaml")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}

func runPublish(cmd *cobra.Command, opts *rootOptions, cfg publish.Config, templateFmt, format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	logger, err := opts.logger()
	if err != nil {
		return err
	}

	out, err := opts.synthesize(logger, true, nil)
	if errors.Is(err, app.ErrSecurityChecks) {
		printFindings(cmd.ErrOrStderr(), out.Checks.Findings)
		return errIssuesFound
	}
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "kiro-banking-publish-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	if _, err := out.Assembly.Write(dir, templateFmt); err != nil {
		return err
	}

	publisher, err := newPublisher(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	objects, err := publisher.Publish(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	logger.Debug("published", "bucket", cfg.Bucket, "objects", len(objects))

	if format == "json" {
		data, err := json.MarshalIndent(objects, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	for _, obj := range objects {
		fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s (%d bytes)\n", cfg.Bucket, obj.Key, obj.Size)
	}
	return nil
}
