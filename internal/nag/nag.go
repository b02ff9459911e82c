// Package nag runs security checks over synthesized templates.
//
// Each rule inspects one template and reports findings as lint issues. A
// resource can suppress a rule through its kiro_nag metadata, but only with
// a reason; suppressed findings are kept and reported separately.
//
// Rules:
//
//	KBS000: Suppressions must carry a reason
//	KBS001: KMS keys rotate
//	KBS002: KMS keys are retained
//	KBS003: Buckets block all public access
//	KBS004: Buckets deny requests without TLS
//	KBS005: Buckets are encrypted
//	KBS006: Buckets write server access logs
//	KBS007: No internet or NAT gateways
//	KBS008: VPCs have flow logs
//	KBS009: No unrestricted security group ingress
//	KBS010: No allow-all security group egress
//	KBS011: Trails validate log files in every region
//	KBS012: Trails are KMS encrypted
//	KBS013: Topics are KMS encrypted
//	KBS014: Log groups use a customer-managed key (warning)
//	KBS015: Alarms treat missing data as not breaching (warning)
//	KBS016: Buckets use a customer-managed key (warning)
package nag

import (
	"fmt"
	"sort"

	corelint "github.com/lex00/wetwire-core-go/lint"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

type (
	// Issue is an alias for corelint.Issue.
	Issue = corelint.Issue
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// MinReasonLength is the shortest accepted suppression reason.
const MinReasonLength = 10

// SuppressionRuleID reports suppressions without a usable reason.
const SuppressionRuleID = "KBS000"

// Finding is an issue raised against one resource. File holds the stack
// name.
type Finding struct {
	Issue
	Resource string `json:"resource"`
}

// Suppressed is a finding silenced by resource metadata.
type Suppressed struct {
	Finding
	Reason string `json:"reason"`
}

// Rule checks one template.
type Rule interface {
	ID() string
	Description() string
	Severity() Severity
	Check(stackName string, tmpl *kb.Template) []Finding
}

// Options configures a run.
type Options struct {
	// DisabledRules are rule IDs to skip.
	DisabledRules []string
}

// Result is the outcome of a run.
type Result struct {
	Findings   []Finding    `json:"findings"`
	Suppressed []Suppressed `json:"suppressed,omitempty"`
}

// Errors returns the error findings.
func (r *Result) Errors() []Finding { return r.bySeverity(SeverityError) }

// Warnings returns the warning findings.
func (r *Result) Warnings() []Finding { return r.bySeverity(SeverityWarning) }

// HasErrors reports whether any unsuppressed error remains.
func (r *Result) HasErrors() bool { return len(r.Errors()) > 0 }

func (r *Result) bySeverity(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Run checks every stack of an assembly.
func Run(a *stack.Assembly, opts Options) *Result {
	result := &Result{}
	rules := enabledRules(opts)
	for _, s := range a.Stacks {
		checkTemplate(result, s.Name, s.Template, rules)
	}
	return result
}

// CheckTemplate checks a single template.
func CheckTemplate(stackName string, tmpl *kb.Template, opts Options) *Result {
	result := &Result{}
	checkTemplate(result, stackName, tmpl, enabledRules(opts))
	return result
}

func checkTemplate(result *Result, stackName string, tmpl *kb.Template, rules []Rule) {
	suppressions, invalid := readSuppressions(stackName, tmpl)
	result.Findings = append(result.Findings, invalid...)

	for _, rule := range rules {
		for _, f := range rule.Check(stackName, tmpl) {
			if reason, ok := suppressions[f.Resource][f.Rule]; ok {
				result.Suppressed = append(result.Suppressed, Suppressed{Finding: f, Reason: reason})
				continue
			}
			result.Findings = append(result.Findings, f)
		}
	}
}

// readSuppressions collects the valid suppressions of a template by
// resource and rule ID. Suppressions without a reason become KBS000
// findings and do not silence anything.
func readSuppressions(stackName string, tmpl *kb.Template) (map[string]map[string]string, []Finding) {
	valid := make(map[string]map[string]string)
	var invalid []Finding

	for _, id := range sortedIDs(tmpl) {
		meta, _ := tmpl.Resources[id].Metadata[stack.MetadataKey].(map[string]any)
		entries, _ := meta["rules_to_suppress"].([]any)
		for _, raw := range entries {
			entry, _ := raw.(map[string]any)
			ruleID, _ := entry["id"].(string)
			reason, _ := entry["reason"].(string)
			if len(reason) < MinReasonLength {
				invalid = append(invalid, finding(stackName, id, SuppressionRuleID, SeverityError,
					fmt.Sprintf("suppression of %q needs a reason of at least %d characters", ruleID, MinReasonLength),
					"Explain why the rule does not apply to this resource"))
				continue
			}
			if valid[id] == nil {
				valid[id] = make(map[string]string)
			}
			valid[id][ruleID] = reason
		}
	}
	return valid, invalid
}

func enabledRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.DisabledRules) == 0 {
		return all
	}

	disabled := make(map[string]bool, len(opts.DisabledRules))
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if !disabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func finding(stackName, resource, rule string, severity Severity, message, suggestion string) Finding {
	return Finding{
		Issue: Issue{
			Rule:       rule,
			Message:    resource + ": " + message,
			Suggestion: suggestion,
			File:       stackName,
			Severity:   severity,
		},
		Resource: resource,
	}
}

func sortedIDs(tmpl *kb.Template) []string {
	ids := make([]string, 0, len(tmpl.Resources))
	for id := range tmpl.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// resourcesOfType returns the logical IDs of resources of one type, sorted.
func resourcesOfType(tmpl *kb.Template, cfnType string) []string {
	var ids []string
	for _, id := range sortedIDs(tmpl) {
		if tmpl.Resources[id].Type == cfnType {
			ids = append(ids, id)
		}
	}
	return ids
}
