// Package compliance declares the AWS Config rules that continuously check
// the environment against MAS TRM and PDPA controls.
//
// The rules are managed rules evaluated by an existing configuration
// recorder. This package only names and parameterizes them; the catalogue
// lives in Rules.
package compliance

import (
	"sort"
	"strconv"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks"
	"github.com/lex00/kiro-banking-go/internal/template"
	"github.com/lex00/kiro-banking-go/resources/config"
)

// Compliance is the declared rule set.
type Compliance struct {
	Stack *stack.Stack
	Rules []Rule
}

// Declare adds the compliance stack to app.
func Declare(app *stack.App, p profile.Profile) *Compliance {
	s := app.NewStack(stacks.StackName(stacks.Compliance, p.Name),
		"AWS Config rules for continuous MAS TRM compliance")
	c := &Compliance{Stack: s, Rules: Rules()}

	for _, r := range c.Rules {
		rule := &config.ConfigRule{
			ConfigRuleName: r.Name(p.Name),
			Description:    r.Description,
			Source: &config.ConfigRule_Source{
				Owner:            "AWS",
				SourceIdentifier: r.Identifier,
			},
		}
		if len(r.InputParameters) > 0 {
			rule.InputParameters = make(map[string]any, len(r.InputParameters))
			for k, v := range r.InputParameters {
				rule.InputParameters[k] = v
			}
		}
		if len(r.ResourceTypes) > 0 {
			rule.Scope = &config.ConfigRule_Scope{ComplianceResourceTypes: r.ResourceTypes}
		}
		s.Add(r.ID, rule)
	}

	s.Output("ComplianceRuleCount", strconv.Itoa(len(c.Rules)),
		"Number of AWS Config compliance rules deployed")
	return c
}

// DeclaredProperties scans synthesized templates for the security
// properties they establish. The result is sorted.
func DeclaredProperties(templates ...*kb.Template) []Property {
	found := make(map[Property]bool)
	for _, tmpl := range templates {
		for _, res := range tmpl.Resources {
			for _, p := range resourceProperties(res) {
				found[p] = true
			}
		}
	}

	out := make([]Property, 0, len(found))
	for p := range found {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func resourceProperties(res kb.ResourceDef) []Property {
	props := res.Properties
	switch res.Type {
	case "AWS::KMS::Key":
		if props["EnableKeyRotation"] == true {
			return []Property{KeyRotation}
		}
	case "AWS::S3::Bucket":
		var out []Property
		if _, ok := props["BucketEncryption"]; ok {
			out = append(out, BucketEncryption)
		}
		if _, ok := props["PublicAccessBlockConfiguration"]; ok {
			out = append(out, BucketPublicAccess)
		}
		return out
	case "AWS::S3::BucketPolicy":
		if template.DeniesInsecureTransport(props["PolicyDocument"]) {
			return []Property{BucketTLSOnly}
		}
	case "AWS::EC2::FlowLog":
		return []Property{VpcFlowLogs}
	case "AWS::EC2::SecurityGroup":
		return []Property{RestrictedSSH}
	case "AWS::CloudTrail::Trail":
		out := []Property{TrailEnabled}
		if props["EnableLogFileValidation"] == true {
			out = append(out, TrailValidation)
		}
		if _, ok := props["KMSKeyId"]; ok {
			out = append(out, TrailEncryption)
		}
		return out
	}
	return nil
}
