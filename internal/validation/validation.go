// Package validation runs cfn-lint-go over synthesized templates.
//
// Templates are linted from disk, the way CloudFormation receives them, so
// an assembly is written to a directory before it is checked.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	"github.com/lex00/kiro-banking-go/internal/stack"
)

// CfnLintResult contains the result of linting one template.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// StackResult is the lint result of one stack's template.
type StackResult struct {
	Stack        string         `json:"stack"`
	TemplatePath string         `json:"template_path"`
	Result       *CfnLintResult `json:"result"`
}

// AssemblyResult holds the results of every stack in deployment order.
type AssemblyResult struct {
	Stacks []StackResult `json:"stacks"`
}

// Passed reports whether no stack has lint errors.
func (r *AssemblyResult) Passed() bool {
	for _, s := range r.Stacks {
		if !s.Result.Passed {
			return false
		}
	}
	return true
}

// TotalIssues sums the issues across stacks.
func (r *AssemblyResult) TotalIssues() int {
	n := 0
	for _, s := range r.Stacks {
		n += s.Result.TotalIssues()
	}
	return n
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable
	result.Passed = len(result.Errors) == 0
	return result, nil
}

// ValidateAssembly writes the assembly to dir as JSON and lints every
// template.
func ValidateAssembly(a *stack.Assembly, dir string) (*AssemblyResult, error) {
	if _, err := a.Write(dir, "json"); err != nil {
		return nil, fmt.Errorf("writing assembly: %w", err)
	}

	result := &AssemblyResult{}
	for _, s := range a.Stacks {
		path := filepath.Join(dir, stack.TemplateFileName(s.Name, "json"))
		lintResult, err := RunCfnLint(path)
		if err != nil {
			return nil, fmt.Errorf("linting %s: %w", s.Name, err)
		}
		result.Stacks = append(result.Stacks, StackResult{
			Stack:        s.Name,
			TemplatePath: path,
			Result:       lintResult,
		})
	}
	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
