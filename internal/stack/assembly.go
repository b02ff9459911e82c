package stack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/template"
)

// ManifestFile is the manifest file name inside an assembly directory.
const ManifestFile = "manifest.json"

// ManifestVersion is the manifest schema version this package writes.
const ManifestVersion = "1"

// SynthesizedStack is one rendered stack.
type SynthesizedStack struct {
	Name         string
	Description  string
	Template     *kb.Template
	Resources    []kb.DiscoveredResource // dependency order
	Dependencies []string
	Exports      map[string]string // export name -> output id
}

// Assembly is the output of a synthesis: the stacks in deployment order.
type Assembly struct {
	Environment Environment
	Stacks      []*SynthesizedStack
}

// Stack returns a synthesized stack by name.
func (a *Assembly) Stack(name string) *SynthesizedStack {
	for _, s := range a.Stacks {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// StackNames returns the stack names in deployment order.
func (a *Assembly) StackNames() []string {
	names := make([]string, 0, len(a.Stacks))
	for _, s := range a.Stacks {
		names = append(names, s.Name)
	}
	return names
}

// CountByType counts resources per CloudFormation type across all stacks.
func (a *Assembly) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, s := range a.Stacks {
		for _, res := range s.Template.Resources {
			counts[res.Type]++
		}
	}
	return counts
}

// ResourceCount is the total number of resources across all stacks.
func (a *Assembly) ResourceCount() int {
	n := 0
	for _, s := range a.Stacks {
		n += len(s.Template.Resources)
	}
	return n
}

// TemplateFileName returns the file name a stack's template is written to.
func TemplateFileName(stackName, format string) string {
	if format == "yaml" {
		return stackName + ".template.yaml"
	}
	return stackName + ".template.json"
}

// Manifest describes the assembly for the given template format.
func (a *Assembly) Manifest(format string) kb.Manifest {
	m := kb.Manifest{
		Version:     ManifestVersion,
		Environment: a.Environment.Name,
		Account:     a.Environment.Account,
		Region:      a.Environment.Region,
	}
	for _, s := range a.Stacks {
		outputs := make([]string, 0, len(s.Template.Outputs))
		for name := range s.Template.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)

		entry := kb.ManifestStack{
			Name:          s.Name,
			Description:   s.Description,
			TemplateFile:  TemplateFileName(s.Name, format),
			Dependencies:  s.Dependencies,
			Outputs:       outputs,
			ResourceCount: len(s.Template.Resources),
		}
		if len(s.Exports) > 0 {
			entry.Exports = s.Exports
		}
		m.Stacks = append(m.Stacks, entry)
	}
	return m
}

// Render serializes one stack's template in the given format.
func Render(s *SynthesizedStack, format string) ([]byte, error) {
	switch format {
	case "json", "":
		return template.ToJSON(s.Template)
	case "yaml":
		return template.ToYAML(s.Template)
	default:
		return nil, fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// Write renders every template and the manifest into dir and returns the
// written paths. Templates listed by a manifest already in dir that this
// assembly does not write are removed.
func (a *Assembly) Write(dir, format string) ([]string, error) {
	if format == "" {
		format = "json"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var written []string
	keep := make(map[string]bool, len(a.Stacks))
	for _, s := range a.Stacks {
		data, err := Render(s, format)
		if err != nil {
			return written, fmt.Errorf("rendering %s: %w", s.Name, err)
		}
		path := filepath.Join(dir, TemplateFileName(s.Name, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
		keep[TemplateFileName(s.Name, format)] = true
	}
	if err := removeStale(dir, keep); err != nil {
		return written, err
	}

	data, err := json.MarshalIndent(a.Manifest(format), "", "  ")
	if err != nil {
		return written, err
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return written, fmt.Errorf("writing %s: %w", path, err)
	}
	return append(written, path), nil
}

// removeStale deletes the templates the manifest in dir lists but keep
// does not. A missing manifest means there is nothing to remove.
func removeStale(dir string, keep map[string]bool) error {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading previous manifest: %w", err)
	}
	var previous kb.Manifest
	if err := json.Unmarshal(data, &previous); err != nil {
		return fmt.Errorf("parsing previous manifest: %w", err)
	}

	for _, entry := range previous.Stacks {
		name := filepath.Base(entry.TemplateFile)
		if keep[name] {
			continue
		}
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale template %s: %w", name, err)
		}
	}
	return nil
}

// LoadAssembly reads an assembly previously written by Write.
func LoadAssembly(dir string) (*Assembly, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m kb.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	assembly := &Assembly{
		Environment: Environment{Name: m.Environment, Account: m.Account, Region: m.Region},
	}
	for _, entry := range m.Stacks {
		path := filepath.Join(dir, entry.TemplateFile)
		tmpl, err := readTemplate(path)
		if err != nil {
			return nil, err
		}
		assembly.Stacks = append(assembly.Stacks, &SynthesizedStack{
			Name:         entry.Name,
			Description:  entry.Description,
			Template:     tmpl,
			Resources:    discoveredFromTemplate(entry.Name, tmpl),
			Dependencies: entry.Dependencies,
			Exports:      entry.Exports,
		})
	}
	return assembly, nil
}

func readTemplate(path string) (*kb.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var tmpl kb.Template
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &tmpl)
	} else {
		err = yaml.Unmarshal(data, &tmpl)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &tmpl, nil
}

// discoveredFromTemplate rebuilds the resource list of a loaded template.
// Type holds the CloudFormation type since the Go type is not recorded on
// disk.
func discoveredFromTemplate(stackName string, tmpl *kb.Template) []kb.DiscoveredResource {
	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	resources := make([]kb.DiscoveredResource, 0, len(names))
	for _, name := range names {
		res := tmpl.Resources[name]
		deps := template.References(res.Properties)
		for _, dep := range res.DependsOn {
			if !containsString(deps, dep) {
				deps = append(deps, dep)
			}
		}
		resources = append(resources, kb.DiscoveredResource{
			Name:         name,
			Type:         res.Type,
			Stack:        stackName,
			Dependencies: deps,
		})
	}
	return resources
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
