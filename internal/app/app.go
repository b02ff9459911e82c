// Package app composes the four stack groupings into one deployable
// assembly for a profile.
package app

import (
	"errors"
	"fmt"

	"github.com/lex00/kiro-banking-go/internal/nag"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks/compliance"
	"github.com/lex00/kiro-banking-go/internal/stacks/encryption"
	"github.com/lex00/kiro-banking-go/internal/stacks/monitoring"
	"github.com/lex00/kiro-banking-go/internal/stacks/network"
)

// ErrSecurityChecks is returned by Synth when unsuppressed error findings
// remain.
var ErrSecurityChecks = errors.New("security checks failed")

// Build declares every stack for p in the given account. Nothing is
// declared when the account is missing or the profile is invalid.
func Build(p profile.Profile, account string) (*stack.App, error) {
	if account == "" {
		return nil, profile.ErrAccountMissing
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	app := stack.NewApp(stack.Environment{Name: p.Name, Account: account, Region: p.Region})
	for _, k := range p.TagKeys() {
		app.Tag(k, p.Tags[k])
	}

	keys := encryption.Declare(app, p)
	network.Declare(app, p)
	monitoring.Declare(app, p, keys.AuditKeyArn)
	compliance.Declare(app, p)
	return app, nil
}

// Synthesis is the outcome of Synth.
type Synthesis struct {
	Assembly *stack.Assembly
	// Checks is nil when the profile disables security checks.
	Checks *nag.Result
}

// Warnings returns the warning findings of the security checks.
func (s *Synthesis) Warnings() []nag.Finding {
	if s.Checks == nil {
		return nil
	}
	return s.Checks.Warnings()
}

// Synth builds and synthesizes the assembly, then runs the security checks
// when the profile enables them. On ErrSecurityChecks the returned
// Synthesis still carries the assembly and every finding.
func Synth(p profile.Profile, account string, opts nag.Options) (*Synthesis, error) {
	app, err := Build(p, account)
	if err != nil {
		return nil, err
	}

	assembly, err := app.Synth()
	if err != nil {
		return nil, fmt.Errorf("synthesizing %s: %w", p.Name, err)
	}

	out := &Synthesis{Assembly: assembly}
	if !p.EnableSecurityChecks {
		return out, nil
	}

	out.Checks = nag.Run(assembly, opts)
	if errs := out.Checks.Errors(); len(errs) > 0 {
		return out, fmt.Errorf("%w: %d error(s) in %s", ErrSecurityChecks, len(errs), p.Name)
	}
	return out, nil
}
