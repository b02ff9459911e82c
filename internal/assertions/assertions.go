// Package assertions provides template assertions for stack tests.
//
// Expected values are normalized through JSON before matching, so tests can
// pass intrinsics, ints and typed property structs. Maps match as subsets,
// lists match element by element.
package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/template"
)

// FindResources returns the resources of a CloudFormation type by logical ID.
func FindResources(tmpl *kb.Template, resourceType string) map[string]kb.ResourceDef {
	found := make(map[string]kb.ResourceDef)
	for name, res := range tmpl.Resources {
		if res.Type == resourceType {
			found[name] = res
		}
	}
	return found
}

// LogicalIDs returns the sorted logical IDs of a CloudFormation type.
func LogicalIDs(tmpl *kb.Template, resourceType string) []string {
	ids := make([]string, 0)
	for name := range FindResources(tmpl, resourceType) {
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids
}

// ResourceCountIs asserts the number of resources of a type.
func ResourceCountIs(t testing.TB, tmpl *kb.Template, resourceType string, count int) bool {
	t.Helper()
	return assert.Len(t, FindResources(tmpl, resourceType), count, "resources of type %s", resourceType)
}

// HasResourceProperties asserts that at least one resource of the type has
// properties matching expected.
func HasResourceProperties(t testing.TB, tmpl *kb.Template, resourceType string, expected any) bool {
	t.Helper()
	want := normalize(t, expected)
	resources := FindResources(tmpl, resourceType)
	for _, res := range resources {
		if Match(res.Properties, want) {
			return true
		}
	}
	return assert.Fail(t, fmt.Sprintf("no %s resource matches properties", resourceType),
		"expected subset:\n%s\nin %d resource(s)", pretty(want), len(resources))
}

// AllResourcesProperties asserts that every resource of the type has
// properties matching expected. It fails when there are no such resources.
func AllResourcesProperties(t testing.TB, tmpl *kb.Template, resourceType string, expected any) bool {
	t.Helper()
	want := normalize(t, expected)
	resources := FindResources(tmpl, resourceType)
	if len(resources) == 0 {
		return assert.Fail(t, fmt.Sprintf("no %s resources", resourceType))
	}
	ok := true
	for _, name := range sortedKeys(resources) {
		if !Match(resources[name].Properties, want) {
			ok = assert.Fail(t, fmt.Sprintf("%s properties do not match", name),
				"expected subset:\n%s\nactual:\n%s", pretty(want), pretty(resources[name].Properties))
		}
	}
	return ok
}

// AllResources asserts that every resource of the type matches expected at
// the resource level (DeletionPolicy, DependsOn, Metadata, Properties...).
func AllResources(t testing.TB, tmpl *kb.Template, resourceType string, expected any) bool {
	t.Helper()
	want := normalize(t, expected)
	resources := FindResources(tmpl, resourceType)
	if len(resources) == 0 {
		return assert.Fail(t, fmt.Sprintf("no %s resources", resourceType))
	}
	ok := true
	for _, name := range sortedKeys(resources) {
		actual := normalize(t, resources[name])
		if !Match(actual, want) {
			ok = assert.Fail(t, fmt.Sprintf("%s does not match", name),
				"expected subset:\n%s\nactual:\n%s", pretty(want), pretty(actual))
		}
	}
	return ok
}

// Match reports whether actual contains expected. Maps match when every
// expected key matches; lists must have equal length and matching elements.
func Match(actual, expected any) bool {
	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range want {
			av, present := got[k]
			if !present || !Match(av, v) {
				return false
			}
		}
		return true
	case []any:
		got, ok := actual.([]any)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !Match(got[i], want[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

func normalize(t testing.TB, v any) any {
	t.Helper()
	out, err := template.Normalize(v)
	if err != nil {
		t.Fatalf("normalizing expected value: %v", err)
	}
	return out
}

func pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sortedKeys(m map[string]kb.ResourceDef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
