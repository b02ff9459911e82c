// Package stack declares CloudFormation stacks as Go values and synthesizes
// them into templates.
//
// A Stack collects resources under logical IDs. Adding a resource binds its
// AttrRef fields to the logical ID, so later declarations can reference
// them directly:
//
//	key := &kms.Key{EnableKeyRotation: true}
//	s.Add("AuditKey", key, stack.Retain())
//	s.Export("AuditKeyArn", key.Arn, "KiroBanking-AuditKeyArn-dev", "Audit key ARN")
package stack

import (
	"fmt"
	"reflect"
	"regexp"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/template"
	"github.com/lex00/kiro-banking-go/intrinsics"
)

// MetadataKey is the resource metadata key holding security check suppressions.
const MetadataKey = "kiro_nag"

var logicalIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,254}$`)

// Suppression silences one security check rule on one resource.
type Suppression struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Option configures a declared resource.
type Option func(*declaration)

// Retain keeps the physical resource when it is removed from the stack or
// replaced.
func Retain() Option {
	return func(d *declaration) {
		d.opts.DeletionPolicy = "Retain"
		d.opts.UpdateReplacePolicy = "Retain"
	}
}

// DependsOn adds explicit creation-order dependencies.
func DependsOn(ids ...string) Option {
	return func(d *declaration) {
		d.opts.DependsOn = append(d.opts.DependsOn, ids...)
	}
}

// Suppress records an accepted exception to a security check rule.
func Suppress(ruleID, reason string) Option {
	return func(d *declaration) {
		d.suppressions = append(d.suppressions, Suppression{ID: ruleID, Reason: reason})
	}
}

type declaration struct {
	id           string
	value        kb.Resource
	opts         template.ResourceOptions
	suppressions []Suppression
}

// Exported identifies an output another stack can import.
type Exported struct {
	Stack string
	Name  string
}

type importRef struct {
	from   string
	export Exported
}

// Stack is one deployable grouping of resources.
type Stack struct {
	app         *App
	name        string
	description string

	resources map[string]*declaration
	order     []string
	outputs   map[string]kb.Output
	exports   map[string]string // export name -> output id
	imports   []importRef
	deps      []string
	errs      []error
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Description returns the stack description.
func (s *Stack) Description() string { return s.description }

// Add declares a resource under a logical ID and returns a Ref to it.
// The resource must be a pointer so its AttrRef fields can be bound.
func (s *Stack) Add(id string, r kb.Resource, opts ...Option) intrinsics.Ref {
	ref := intrinsics.Ref{LogicalName: id}

	if !logicalIDPattern.MatchString(id) {
		s.errs = append(s.errs, fmt.Errorf("%s: invalid logical ID %q", s.name, id))
		return ref
	}
	if _, exists := s.resources[id]; exists {
		s.errs = append(s.errs, fmt.Errorf("%s: duplicate logical ID %q", s.name, id))
		return ref
	}
	if err := bindAttrs(r, id); err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %s: %w", s.name, id, err))
		return ref
	}

	d := &declaration{id: id, value: r}
	for _, opt := range opts {
		opt(d)
	}
	s.resources[id] = d
	s.order = append(s.order, id)
	return ref
}

// Output adds a stack output.
func (s *Stack) Output(id string, value any, description string) {
	if _, exists := s.outputs[id]; exists {
		s.errs = append(s.errs, fmt.Errorf("%s: duplicate output %q", s.name, id))
		return
	}
	s.outputs[id] = kb.Output{Description: description, Value: value}
}

// Export adds a stack output published under exportName.
func (s *Stack) Export(id string, value any, exportName, description string) Exported {
	exported := Exported{Stack: s.name, Name: exportName}
	if _, exists := s.outputs[id]; exists {
		s.errs = append(s.errs, fmt.Errorf("%s: duplicate output %q", s.name, id))
		return exported
	}
	if owner, exists := s.app.exportOwner(exportName); exists {
		s.errs = append(s.errs, fmt.Errorf("%s: export %q already published by %s", s.name, exportName, owner))
		return exported
	}
	s.outputs[id] = kb.Output{
		Description: description,
		Value:       value,
		Export:      &kb.Export{Name: exportName},
	}
	s.exports[exportName] = id
	return exported
}

// Import references an export of another stack and makes this stack depend
// on it.
func (s *Stack) Import(e Exported) intrinsics.ImportValue {
	s.imports = append(s.imports, importRef{from: s.name, export: e})
	if e.Stack != s.name {
		s.addDependency(e.Stack)
	}
	return intrinsics.ImportValue{ExportName: e.Name}
}

// AddDependency makes this stack deploy after other.
func (s *Stack) AddDependency(other *Stack) {
	s.addDependency(other.name)
}

func (s *Stack) addDependency(name string) {
	for _, dep := range s.deps {
		if dep == name {
			return
		}
	}
	s.deps = append(s.deps, name)
}

// Resource returns a declared resource value by logical ID.
func (s *Stack) Resource(id string) (kb.Resource, bool) {
	d, ok := s.resources[id]
	if !ok {
		return nil, false
	}
	return d.value, true
}

// LogicalIDs returns the declared logical IDs in declaration order.
func (s *Stack) LogicalIDs() []string {
	return append([]string(nil), s.order...)
}

// bindAttrs points every AttrRef field of r at the logical ID.
func bindAttrs(r kb.Resource, id string) error {
	val := reflect.ValueOf(r)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("resource %T must be a non-nil struct pointer", r)
	}
	val = val.Elem()
	typ := val.Type()

	attrType := reflect.TypeOf(kb.AttrRef{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() || field.Type != attrType {
			continue
		}
		val.Field(i).Set(reflect.ValueOf(kb.AttrRef{Resource: id, Attribute: field.Name}))
	}
	return nil
}
