// Package stacks holds the naming conventions shared by the four groupings.
// The groupings themselves live in the subpackages.
package stacks

import "strings"

// Prefix starts every stack and export name.
const Prefix = "KiroBanking"

// Grouping names.
const (
	Encryption = "Encryption"
	Network    = "Network"
	Monitoring = "Monitoring"
	Compliance = "Compliance"
)

// StackName returns the stack name of a grouping, e.g.
// "KiroBanking-Encryption-dev".
func StackName(grouping, env string) string {
	return Prefix + "-" + grouping + "-" + env
}

// ExportName returns the export name of an output, e.g.
// "KiroBanking-AuditKeyArn-dev".
func ExportName(output, env string) string {
	return Prefix + "-" + output + "-" + env
}

// PhysicalName returns a lowercase physical resource name, e.g.
// "kiro-banking-audit-dev".
func PhysicalName(env string, parts ...string) string {
	return "kiro-banking-" + strings.Join(append(parts, env), "-")
}
