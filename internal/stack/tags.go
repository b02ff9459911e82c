package stack

import (
	"fmt"
	"reflect"
	"sort"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/intrinsics"
)

// Taggable reports whether a resource type carries a Tags property.
func Taggable(r kb.Resource) bool {
	_, ok := tagsField(r)
	return ok
}

// applyTags appends every app tag whose key the resource does not already
// set. Resource types without a Tags property are left alone.
func applyTags(r kb.Resource, tags map[string]string) error {
	field, ok := tagsField(r)
	if !ok || len(tags) == 0 {
		return nil
	}

	existing := field.Interface().([]any)
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		key, err := tagKey(t)
		if err != nil {
			return err
		}
		have[key] = true
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		if !have[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	merged := append([]any(nil), existing...)
	for _, k := range keys {
		merged = append(merged, intrinsics.Tag{Key: k, Value: tags[k]})
	}
	field.Set(reflect.ValueOf(merged))
	return nil
}

func tagsField(r kb.Resource) (reflect.Value, bool) {
	val := reflect.ValueOf(r)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return reflect.Value{}, false
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	field := val.FieldByName("Tags")
	if !field.IsValid() || field.Type() != reflect.TypeOf([]any(nil)) {
		return reflect.Value{}, false
	}
	return field, true
}

func tagKey(t any) (string, error) {
	switch v := t.(type) {
	case intrinsics.Tag:
		return fmt.Sprint(v.Key), nil
	case map[string]any:
		if key, ok := v["Key"].(string); ok {
			return key, nil
		}
	case map[string]string:
		if key, ok := v["Key"]; ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("unrecognized tag %#v", t)
}
