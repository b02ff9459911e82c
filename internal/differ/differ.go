// Package differ provides semantic comparison of CloudFormation templates
// and of whole assemblies.
//
// Assemblies for different environments are paired by grouping: the
// environment suffix is dropped from each stack name, so
// KiroBanking-Network-dev is compared with KiroBanking-Network-prod.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    kb.TemplateDiff
	Summary kb.DiffSummary
}

// Compare compares two CloudFormation templates and returns differences.
func Compare(template1, template2 *kb.Template, opts Options) (*Result, error) {
	result := &Result{}

	res1 := template1.Resources
	res2 := template2.Resources

	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, kb.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, kb.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, kb.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = kb.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified

	return result, nil
}

// StackDiff is the comparison of one grouping across two assemblies.
type StackDiff struct {
	Grouping string `json:"grouping"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Result   *Result
}

// AssemblyResult compares two assemblies stack by stack.
type AssemblyResult struct {
	Stacks []StackDiff
	// Counts holds the resource types whose counts differ.
	Counts []CountChange
}

// Structural reports whether the assemblies differ in more than values:
// a resource added, removed or retyped, or a stack present on one side only.
func (r *AssemblyResult) Structural() bool {
	if len(r.Counts) > 0 {
		return true
	}
	for _, s := range r.Stacks {
		if s.From == "" || s.To == "" || s.Result.Summary.Added > 0 || s.Result.Summary.Removed > 0 {
			return true
		}
	}
	return false
}

// CompareAssemblies pairs the stacks of two assemblies by grouping and
// compares each pair. A grouping present on one side only is compared
// against an empty template.
func CompareAssemblies(from, to *stack.Assembly, opts Options) (*AssemblyResult, error) {
	fromStacks := byGrouping(from)
	toStacks := byGrouping(to)

	var groupings []string
	seen := make(map[string]bool)
	for _, a := range []*stack.Assembly{from, to} {
		for _, s := range a.Stacks {
			g := grouping(s.Name, a.Environment.Name)
			if !seen[g] {
				seen[g] = true
				groupings = append(groupings, g)
			}
		}
	}

	result := &AssemblyResult{Counts: CompareCounts(from, to)}
	for _, g := range groupings {
		diff := StackDiff{Grouping: g}
		t1, t2 := emptyTemplate(), emptyTemplate()
		if s, ok := fromStacks[g]; ok {
			diff.From, t1 = s.Name, s.Template
		}
		if s, ok := toStacks[g]; ok {
			diff.To, t2 = s.Name, s.Template
		}

		r, err := Compare(t1, t2, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", g, err)
		}
		diff.Result = r
		result.Stacks = append(result.Stacks, diff)
	}
	return result, nil
}

// CountChange is a resource type whose count differs between assemblies.
type CountChange struct {
	Type string `json:"type"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// CompareCounts returns the resource types whose counts differ, sorted by
// type.
func CompareCounts(from, to *stack.Assembly) []CountChange {
	c1 := from.CountByType()
	c2 := to.CountByType()

	types := make(map[string]bool)
	for t := range c1 {
		types[t] = true
	}
	for t := range c2 {
		types[t] = true
	}

	var changes []CountChange
	for t := range types {
		if c1[t] != c2[t] {
			changes = append(changes, CountChange{Type: t, From: c1[t], To: c2[t]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Type < changes[j].Type })
	return changes
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a file.
func LoadTemplate(path string) (*kb.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var template kb.Template

	// Try JSON first
	if err := json.Unmarshal(data, &template); err != nil {
		if err := yaml.Unmarshal(data, &template); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &template, nil
}

func grouping(stackName, env string) string {
	return strings.TrimSuffix(stackName, "-"+env)
}

func byGrouping(a *stack.Assembly) map[string]*stack.SynthesizedStack {
	out := make(map[string]*stack.SynthesizedStack, len(a.Stacks))
	for _, s := range a.Stacks {
		out[grouping(s.Name, a.Environment.Name)] = s
	}
	return out
}

func emptyTemplate() *kb.Template {
	return &kb.Template{Resources: map[string]kb.ResourceDef{}}
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 kb.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareProperties("", def1.Properties, def2.Properties, opts)...)

	if !equalStringSlices(def1.DependsOn, def2.DependsOn) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %q → %q", def1.DeletionPolicy, def2.DeletionPolicy))
	}

	return changes
}

// compareProperties compares property maps one level deep.
func compareProperties(prefix string, props1, props2 map[string]any, opts Options) []string {
	var changes []string

	for key, val2 := range props2 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if val1, exists := props1[key]; exists {
			if !deepEqual(val1, val2, opts) {
				changes = append(changes, fmt.Sprintf("%s modified", path))
			}
		} else {
			changes = append(changes, fmt.Sprintf("%s added", path))
		}
	}

	for key := range props1 {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if _, exists := props2[key]; !exists {
			changes = append(changes, fmt.Sprintf("%s removed", path))
		}
	}

	sort.Strings(changes)
	return changes
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts every slice by the JSON encoding of its elements.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return sortKey(result[i]) < sortKey(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any)
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func sortKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// equalStringSlices compares two string slices for equality.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []kb.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
