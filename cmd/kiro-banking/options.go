package main

import (
	"fmt"
	"io"
	"log/slog"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/app"
	"github.com/lex00/kiro-banking-go/internal/logging"
	"github.com/lex00/kiro-banking-go/internal/nag"
	"github.com/lex00/kiro-banking-go/internal/profile"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	env         string
	profileFile string
	verbose     bool
	logFormat   string
}

func (o *rootOptions) profile() (profile.Profile, error) {
	if o.profileFile != "" {
		return profile.Load(o.profileFile)
	}
	return profile.Select(o.env)
}

func (o *rootOptions) logger() (*slog.Logger, error) {
	level := "info"
	if o.verbose {
		level = "debug"
	}
	return logging.New(level, o.logFormat)
}

// synthesize resolves the profile and account, then synthesizes. With
// checks false the profile's security checks are skipped.
func (o *rootOptions) synthesize(logger *slog.Logger, checks bool, disabled []string) (*app.Synthesis, error) {
	p, err := o.profile()
	if err != nil {
		return nil, err
	}
	account, err := profile.AccountFromEnv()
	if err != nil {
		return nil, err
	}
	if !checks {
		p.EnableSecurityChecks = false
	}

	logger.Debug("synthesizing", "env", p.Name, "region", p.Region, "checks", p.EnableSecurityChecks)
	out, err := app.Synth(p, account, nag.Options{DisabledRules: disabled})
	if out != nil {
		logger.Debug("synthesized", "stacks", len(out.Assembly.Stacks), "resources", out.Assembly.ResourceCount())
	}
	return out, err
}

func toNagFinding(f nag.Finding) kb.NagFinding {
	return kb.NagFinding{
		Stack:      f.File,
		Resource:   f.Resource,
		Severity:   f.Severity.String(),
		Message:    f.Message,
		Rule:       f.Rule,
		Suggestion: f.Suggestion,
	}
}

func printFindings(w io.Writer, findings []nag.Finding) {
	for _, f := range findings {
		fmt.Fprintf(w, "%s: %s: %s [%s]\n", f.File, f.Severity, f.Message, f.Rule)
		if f.Suggestion != "" {
			fmt.Fprintf(w, "    %s\n", f.Suggestion)
		}
	}
}
