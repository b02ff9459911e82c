// Package template provides CloudFormation template building from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/serialize"
)

// ResourceOptions are the resource attributes that sit beside Properties.
type ResourceOptions struct {
	DependsOn           []string
	DeletionPolicy      string
	UpdateReplacePolicy string
	Metadata            map[string]any
}

// Builder constructs a CloudFormation template from declared resources.
type Builder struct {
	description string
	resources   map[string]kb.DiscoveredResource
	values      map[string]any // Actual struct values for serialization
	options     map[string]ResourceOptions
	outputs     map[string]kb.Output
}

// NewBuilder creates a template builder from declared resources.
func NewBuilder(resources map[string]kb.DiscoveredResource) *Builder {
	return &Builder{
		resources: resources,
		values:    make(map[string]any),
		options:   make(map[string]ResourceOptions),
		outputs:   make(map[string]kb.Output),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// SetValue associates a resource value with its logical name.
func (b *Builder) SetValue(name string, value any) {
	b.values[name] = value
}

// SetOptions records DependsOn, retention policies and metadata for a resource.
func (b *Builder) SetOptions(name string, opts ResourceOptions) {
	b.options[name] = opts
}

// SetOutput adds a template output.
func (b *Builder) SetOutput(name string, output kb.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*kb.Template, error) {
	if err := b.checkReferences(); err != nil {
		return nil, err
	}

	// Get resources in dependency order
	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	template := &kb.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]kb.ResourceDef),
	}

	for _, name := range order {
		res := b.resources[name]
		value, ok := b.values[name]
		if !ok {
			return nil, fmt.Errorf("no value set for resource %s", name)
		}

		resourceType := cfResourceType(res.Type)
		if resourceType == "" {
			return nil, fmt.Errorf("unknown resource type: %s", res.Type)
		}

		props, err := serialize.Properties(value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		opts := b.options[name]
		template.Resources[name] = kb.ResourceDef{
			Type:                resourceType,
			Properties:          props,
			DependsOn:           opts.DependsOn,
			DeletionPolicy:      opts.DeletionPolicy,
			UpdateReplacePolicy: opts.UpdateReplacePolicy,
			Metadata:            opts.Metadata,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]kb.Output, len(b.outputs))
		for name, output := range b.outputs {
			value, err := Normalize(output.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			output.Value = value
			template.Outputs[name] = output
		}
	}

	return template, nil
}

// Order returns the logical IDs in dependency order.
func (b *Builder) Order() ([]string, error) {
	return b.topologicalSort()
}

// checkReferences fails when a resource or output references a logical ID
// that was never declared.
func (b *Builder) checkReferences() error {
	var errs []error

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := b.resources[name]
		for _, dep := range res.Dependencies {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("resource %s references undeclared resource %s", name, dep))
			}
		}
		for _, dep := range b.options[name].DependsOn {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("resource %s depends on undeclared resource %s", name, dep))
			}
		}
	}

	outputNames := make([]string, 0, len(b.outputs))
	for name := range b.outputs {
		outputNames = append(outputNames, name)
	}
	sort.Strings(outputNames)

	for _, name := range outputNames {
		value, err := Normalize(b.outputs[name].Value)
		if err != nil {
			return fmt.Errorf("serializing output %s: %w", name, err)
		}
		for _, dep := range References(value) {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("output %s references undeclared resource %s", name, dep))
			}
		}
	}

	return errors.Join(errs...)
}

// References returns the sorted, de-duplicated logical IDs referenced by Ref
// or Fn::GetAtt anywhere inside a serialized value. Pseudo parameters
// (AWS::Region, ...) are not references.
func References(value any) []string {
	seen := make(map[string]bool)
	collectRefs(value, seen)

	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(value any, seen map[string]bool) {
	switch v := value.(type) {
	case map[string]any:
		if ref, ok := v["Ref"].(string); ok && len(v) == 1 {
			if !strings.HasPrefix(ref, "AWS::") {
				seen[ref] = true
			}
			return
		}
		if getAtt, ok := v["Fn::GetAtt"].([]any); ok && len(v) == 1 {
			if len(getAtt) > 0 {
				if name, ok := getAtt[0].(string); ok {
					seen[name] = true
				}
			}
			return
		}
		for _, val := range v {
			collectRefs(val, seen)
		}

	case []any:
		for _, elem := range v {
			collectRefs(elem, seen)
		}
	}
}

// DeniesInsecureTransport reports whether a normalized policy document
// denies requests made without TLS.
func DeniesInsecureTransport(doc any) bool {
	m, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	statements, _ := m["Statement"].([]any)
	for _, raw := range statements {
		stmt, ok := raw.(map[string]any)
		if !ok || stmt["Effect"] != "Deny" {
			continue
		}
		cond, _ := stmt["Condition"].(map[string]any)
		boolCond, _ := cond["Bool"].(map[string]any)
		if v, ok := boolCond["aws:SecureTransport"]; ok && (v == "false" || v == false) {
			return true
		}
	}
	return false
}

// Normalize round-trips a value through JSON, exposing intrinsics as plain
// maps for reference scanning.
func Normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	// Build adjacency list
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name := range b.resources {
		for _, dep := range b.dependencies(name) {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue) // Deterministic order

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue) // Keep sorted for determinism
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// dependencies merges property references with explicit DependsOn entries.
func (b *Builder) dependencies(name string) []string {
	deps := b.resources[name].Dependencies
	explicit := b.options[name].DependsOn
	if len(explicit) == 0 {
		return deps
	}
	merged := make([]string, 0, len(deps)+len(explicit))
	merged = append(merged, deps...)
	for _, dep := range explicit {
		if !contains(merged, dep) {
			merged = append(merged, dep)
		}
	}
	return merged
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.dependencies(node) {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] {
			if findCycle(name) {
				break
			}
		}
	}

	if len(cycle) > 0 {
		msg := "circular dependency detected:\n"
		for i, name := range cycle {
			res := b.resources[name]
			msg += fmt.Sprintf("  %s (%s)", name, res.Type)
			if i < len(cycle)-1 {
				msg += "\n    → "
			}
		}
		return errors.New(msg)
	}

	return errors.New("circular dependency detected")
}

// cfResourceType converts Go type to CloudFormation type.
// e.g., "kms.Key" -> "AWS::KMS::Key", "cloudtrail.Trail" -> "AWS::CloudTrail::Trail"
func cfResourceType(goType string) string {
	parts := strings.SplitN(goType, ".", 2)
	if len(parts) != 2 {
		return ""
	}

	serviceName := goPackageToCFService(parts[0])
	if serviceName == "" {
		return ""
	}

	return "AWS::" + serviceName + "::" + parts[1]
}

// goPackageToCFService maps Go package names to CloudFormation service names.
func goPackageToCFService(pkg string) string {
	directMap := map[string]string{
		"cloudtrail": "CloudTrail",
		"cloudwatch": "CloudWatch",
		"config":     "Config",
		"ec2":        "EC2",
		"iam":        "IAM",
		"kms":        "KMS",
		"logs":       "Logs",
		"s3":         "S3",
		"sns":        "SNS",
	}

	if service, ok := directMap[pkg]; ok {
		return service
	}
	return ""
}

// GoTypeName returns the "package.Type" name of a resource value, the form
// DiscoveredResource.Type carries.
func GoTypeName(v any) string {
	name := fmt.Sprintf("%T", v)
	name = strings.TrimPrefix(name, "*")
	return name
}

// ToJSON serializes the template to JSON.
func ToJSON(t *kb.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *kb.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
