// Package graph generates DOT and Mermaid dependency graphs of a
// synthesized assembly.
//
// Each stack becomes a cluster and each resource a node labelled with its
// CloudFormation type. Fn::GetAtt edges are blue; edges that cross stacks
// through an export and Fn::ImportValue are dashed.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from an assembly.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// Stacks limits the graph to the named stacks. Empty means all.
	Stacks []string
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(a *stack.Assembly, w io.Writer) error {
	graph := g.buildGraph(a)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(a *stack.Assembly) (string, error) {
	var sb strings.Builder
	if err := g.Generate(a, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) included(name string) bool {
	if len(g.Stacks) == 0 {
		return true
	}
	for _, s := range g.Stacks {
		if s == name {
			return true
		}
	}
	return false
}

// nodeKey identifies a resource across stacks.
type nodeKey struct {
	stack    string
	resource string
}

func (g *Generator) buildGraph(a *stack.Assembly) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	nodes := make(map[nodeKey]dot.Node)
	for _, s := range a.Stacks {
		if !g.included(s.Name) {
			continue
		}
		cluster := graph.Subgraph("cluster_"+s.Name, dot.ClusterOption{})
		cluster.Attr("label", s.Name)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")

		for _, id := range sortedIDs(s.Template) {
			n := cluster.Node(s.Name + "." + id)
			n.Label(id + "\\n[" + s.Template.Resources[id].Type + "]")
			nodes[nodeKey{s.Name, id}] = n
		}
	}

	exports := exportTargets(a)
	for _, s := range a.Stacks {
		if !g.included(s.Name) {
			continue
		}
		for _, id := range sortedIDs(s.Template) {
			res := s.Template.Resources[id]
			from := nodes[nodeKey{s.Name, id}]

			getAtts := make(map[string]bool)
			collectGetAtts(res.Properties, getAtts)

			for _, dep := range dependencies(res) {
				to, ok := nodes[nodeKey{s.Name, dep}]
				if !ok {
					continue
				}
				e := graph.Edge(from, to)
				if getAtts[dep] {
					e.Attr("color", "blue")
				}
			}

			imports := make(map[string]bool)
			collectImports(res.Properties, imports)
			for _, name := range sortedKeys(imports) {
				target, ok := exports[name]
				if !ok {
					continue
				}
				if to, ok := nodes[target]; ok {
					e := graph.Edge(from, to)
					e.Attr("style", "dashed")
					e.Label(name)
				}
			}
		}
	}

	return graph
}

func dependencies(res kb.ResourceDef) []string {
	deps := template.References(res.Properties)
	for _, d := range res.DependsOn {
		found := false
		for _, existing := range deps {
			if existing == d {
				found = true
				break
			}
		}
		if !found {
			deps = append(deps, d)
		}
	}
	return deps
}

// exportTargets maps every export name to the resource its output value
// references.
func exportTargets(a *stack.Assembly) map[string]nodeKey {
	out := make(map[string]nodeKey)
	for _, s := range a.Stacks {
		for exportName, outputID := range s.Exports {
			output, ok := s.Template.Outputs[outputID]
			if !ok {
				continue
			}
			refs := template.References(output.Value)
			if len(refs) > 0 {
				out[exportName] = nodeKey{s.Name, refs[0]}
			}
		}
	}
	return out
}

func collectGetAtts(value any, out map[string]bool) {
	switch v := value.(type) {
	case map[string]any:
		if args, ok := v["Fn::GetAtt"].([]any); ok && len(args) > 0 {
			if name, ok := args[0].(string); ok {
				out[name] = true
			}
		}
		for _, child := range v {
			collectGetAtts(child, out)
		}
	case []any:
		for _, child := range v {
			collectGetAtts(child, out)
		}
	}
}

func collectImports(value any, out map[string]bool) {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["Fn::ImportValue"].(string); ok {
			out[name] = true
		}
		for _, child := range v {
			collectImports(child, out)
		}
	case []any:
		for _, child := range v {
			collectImports(child, out)
		}
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

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
