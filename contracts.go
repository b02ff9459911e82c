// Package kirobanking provides the shared types for the Kiro banking
// infrastructure definition.
//
// Resources are plain Go struct values registered on a stack:
//
//	key := enc.Add("AuditKey", &kms.Key{
//	    EnableKeyRotation: true,
//	})
//	enc.Add("AuditKeyAlias", &kms.Alias{
//	    AliasName:   "alias/kiro-banking-audit-dev",
//	    TargetKeyId: key,
//	})
//
// The kiro-banking CLI synthesizes the declared stacks into CloudFormation
// templates and a manifest describing their deployment order.
package kirobanking

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (kms.Key, ec2.VPC, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::KMS::Key")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
// Resource types have AttrRef fields for each attribute that other
// resources consume. The fields are bound when the resource is added to a
// stack.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["AuditKey", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "GroupId")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DiscoveredResource represents a resource declared on a stack.
type DiscoveredResource struct {
	// Name is the CloudFormation logical ID
	Name string
	// Type is the Go type (e.g., "kms.Key", "ec2.VPC")
	Type string
	// Stack is the name of the stack declaring the resource
	Stack string
	// Dependencies are logical names of referenced resources
	Dependencies []string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names an output so other stacks can import it.
type Export struct {
	Name string `json:"Name" yaml:"Name"`
}

// Manifest describes a synthesized assembly: which stacks exist, where
// their templates are, and the order they deploy in.
type Manifest struct {
	Version     string          `json:"version"`
	Environment string          `json:"environment"`
	Account     string          `json:"account"`
	Region      string          `json:"region"`
	Stacks      []ManifestStack `json:"stacks"`
}

// ManifestStack is a single stack entry in the manifest.
type ManifestStack struct {
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	TemplateFile  string            `json:"templateFile"`
	Dependencies  []string          `json:"dependencies,omitempty"`
	Outputs       []string          `json:"outputs,omitempty"`
	Exports       map[string]string `json:"exports,omitempty"`
	ResourceCount int               `json:"resourceCount"`
}

// SynthResult is the JSON output from `kiro-banking synth`.
type SynthResult struct {
	Success   bool         `json:"success"`
	OutputDir string       `json:"outputDir,omitempty"`
	Stacks    []string     `json:"stacks,omitempty"`
	Warnings  []NagFinding `json:"warnings,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
	Manifest  *Manifest    `json:"manifest,omitempty"`
}

// NagResult is the JSON output from `kiro-banking nag`.
type NagResult struct {
	Success    bool         `json:"success"`
	Findings   []NagFinding `json:"findings,omitempty"`
	Suppressed []NagFinding `json:"suppressed,omitempty"`
}

// NagFinding is a single security check finding.
type NagFinding struct {
	Stack      string `json:"stack"`
	Resource   string `json:"resource"`
	Severity   string `json:"severity"` // "error", "warning", "info"
	Message    string `json:"message"`
	Rule       string `json:"rule"`
	Suggestion string `json:"suggestion,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ValidateResult is the JSON output from `kiro-banking validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Stacks    int      `json:"stacks"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `kiro-banking list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Stack string `json:"stack"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// TemplateDiff lists the resources that differ between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry is a single resource difference.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}
