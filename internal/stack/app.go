package stack

import (
	"errors"
	"fmt"
	"sort"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/serialize"
	"github.com/lex00/kiro-banking-go/internal/template"
)

// Environment is the deployment target every stack of an app shares.
type Environment struct {
	Name    string
	Account string
	Region  string
}

// App is the set of stacks synthesized together.
type App struct {
	env    Environment
	stacks []*Stack
	byName map[string]*Stack
	tags   map[string]string
	errs   []error
}

// NewApp creates an empty app for the given environment.
func NewApp(env Environment) *App {
	return &App{
		env:    env,
		byName: make(map[string]*Stack),
		tags:   make(map[string]string),
	}
}

// Environment returns the deployment target.
func (a *App) Environment() Environment { return a.env }

// NewStack declares a stack.
func (a *App) NewStack(name, description string) *Stack {
	s := &Stack{
		app:         a,
		name:        name,
		description: description,
		resources:   make(map[string]*declaration),
		outputs:     make(map[string]kb.Output),
		exports:     make(map[string]string),
	}
	if _, exists := a.byName[name]; exists {
		a.errs = append(a.errs, fmt.Errorf("duplicate stack name %q", name))
		return s
	}
	a.byName[name] = s
	a.stacks = append(a.stacks, s)
	return s
}

// Stacks returns the stacks in declaration order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack(nil), a.stacks...)
}

// Stack returns a stack by name.
func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.byName[name]
	return s, ok
}

// Tag adds a tag applied to every taggable resource at synthesis.
func (a *App) Tag(key, value string) {
	a.tags[key] = value
}

// Tags returns a copy of the app-wide tags.
func (a *App) Tags() map[string]string {
	out := make(map[string]string, len(a.tags))
	for k, v := range a.tags {
		out[k] = v
	}
	return out
}

func (a *App) exportOwner(name string) (string, bool) {
	for _, s := range a.stacks {
		if _, ok := s.exports[name]; ok {
			return s.name, true
		}
	}
	return "", false
}

// Synth applies app tags and renders every stack to a template. All
// declaration errors across all stacks are reported together.
func (a *App) Synth() (*Assembly, error) {
	errs := append([]error(nil), a.errs...)
	for _, s := range a.stacks {
		errs = append(errs, s.errs...)
	}
	errs = append(errs, a.checkImports()...)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	order, err := a.stackOrder()
	if err != nil {
		return nil, err
	}

	for _, s := range a.stacks {
		for _, id := range s.order {
			if err := applyTags(s.resources[id].value, a.tags); err != nil {
				errs = append(errs, fmt.Errorf("%s: tagging %s: %w", s.name, id, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	assembly := &Assembly{Environment: a.env}
	for _, s := range order {
		synthesized, err := s.synth()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		assembly.Stacks = append(assembly.Stacks, synthesized)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return assembly, nil
}

// checkImports verifies every imported export is published by its stack.
func (a *App) checkImports() []error {
	var errs []error
	for _, s := range a.stacks {
		for _, imp := range s.imports {
			owner, ok := a.byName[imp.export.Stack]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: imports %q from unknown stack %s", imp.from, imp.export.Name, imp.export.Stack))
				continue
			}
			if _, ok := owner.exports[imp.export.Name]; !ok {
				errs = append(errs, fmt.Errorf("%s: imports %q which %s does not export", imp.from, imp.export.Name, owner.name))
			}
		}
	}
	return errs
}

// stackOrder sorts stacks so dependencies come first. Ties keep declaration
// order.
func (a *App) stackOrder() ([]*Stack, error) {
	index := make(map[string]int, len(a.stacks))
	for i, s := range a.stacks {
		index[s.name] = i
	}

	inDegree := make(map[string]int, len(a.stacks))
	dependents := make(map[string][]string)
	for _, s := range a.stacks {
		inDegree[s.name] = 0
	}
	for _, s := range a.stacks {
		for _, dep := range s.deps {
			if _, ok := a.byName[dep]; !ok {
				return nil, fmt.Errorf("%s depends on unknown stack %s", s.name, dep)
			}
			dependents[dep] = append(dependents[dep], s.name)
			inDegree[s.name]++
		}
	}

	var queue []string
	for _, s := range a.stacks {
		if inDegree[s.name] == 0 {
			queue = append(queue, s.name)
		}
	}

	var result []*Stack
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, a.byName[name])

		for _, next := range dependents[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
				sort.Slice(queue, func(i, j int) bool { return index[queue[i]] < index[queue[j]] })
			}
		}
	}

	if len(result) != len(a.stacks) {
		var stuck []string
		for _, s := range a.stacks {
			if inDegree[s.name] > 0 {
				stuck = append(stuck, s.name)
			}
		}
		return nil, fmt.Errorf("circular stack dependency between %v", stuck)
	}
	return result, nil
}

// synth renders one stack through the template builder.
func (s *Stack) synth() (*SynthesizedStack, error) {
	discovered := make(map[string]kb.DiscoveredResource, len(s.resources))
	for _, id := range s.order {
		d := s.resources[id]
		props, err := serialize.Properties(d.value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", id, err)
		}
		discovered[id] = kb.DiscoveredResource{
			Name:         id,
			Type:         template.GoTypeName(d.value),
			Stack:        s.name,
			Dependencies: template.References(props),
		}
	}

	builder := template.NewBuilder(discovered)
	builder.SetDescription(s.description)
	for _, id := range s.order {
		d := s.resources[id]
		builder.SetValue(id, d.value)

		opts := d.opts
		if len(d.suppressions) > 0 {
			rules := make([]any, 0, len(d.suppressions))
			for _, sup := range d.suppressions {
				rules = append(rules, map[string]any{"id": sup.ID, "reason": sup.Reason})
			}
			opts.Metadata = map[string]any{
				MetadataKey: map[string]any{"rules_to_suppress": rules},
			}
		}
		builder.SetOptions(id, opts)
	}
	for id, output := range s.outputs {
		builder.SetOutput(id, output)
	}

	tmpl, err := builder.Build()
	if err != nil {
		return nil, err
	}
	order, err := builder.Order()
	if err != nil {
		return nil, err
	}

	resources := make([]kb.DiscoveredResource, 0, len(order))
	for _, id := range order {
		resources = append(resources, discovered[id])
	}

	exports := make(map[string]string, len(s.exports))
	for name, id := range s.exports {
		exports[name] = id
	}

	return &SynthesizedStack{
		Name:         s.name,
		Description:  s.description,
		Template:     tmpl,
		Resources:    resources,
		Dependencies: append([]string(nil), s.deps...),
		Exports:      exports,
	}, nil
}
