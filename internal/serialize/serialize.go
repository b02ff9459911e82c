// Package serialize turns resource structs into CloudFormation property maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Properties serializes a resource struct and normalizes the result through
// JSON, so the returned map holds exactly what a template file read back
// from disk would hold (numbers as float64, intrinsics as maps).
func Properties(v any) (map[string]any, error) {
	props, err := Resource(v)
	if err != nil {
		return nil, err
	}
	if props == nil {
		return nil, fmt.Errorf("serialize: %T is not a struct", v)
	}

	var normalized map[string]any
	if err := roundTrip(props, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Resource serializes a resource struct into a property map keyed by the
// fields' JSON names. Zero values are omitted, so an unset property never
// reaches the template. Values implementing json.Marshaler (intrinsics,
// AttrRef) are expanded to their JSON form. Resource returns nil for
// anything that is not a struct or struct pointer.
func Resource(v any) (map[string]any, error) {
	val := reflect.Indirect(reflect.ValueOf(v))
	if val.Kind() != reflect.Struct {
		return nil, nil
	}
	return structFields(val)
}

func structFields(val reflect.Value) (map[string]any, error) {
	typ := val.Type()
	result := make(map[string]any)

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := propertyName(field)
		if name == "-" {
			continue
		}

		fv := val.Field(i)
		if omit(fv) {
			continue
		}
		out, err := value(fv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ.Name(), field.Name, err)
		}
		if out != nil {
			result[name] = out
		}
	}
	return result, nil
}

// propertyName is the field's JSON name, or the Go name when untagged.
func propertyName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// omit reports whether a field holds nothing worth emitting. Structs are
// kept unless they report IsZero, as AttrRef does.
func omit(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	default:
		return v.IsZero()
	}
}

func value(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	if m, ok := v.Interface().(json.Marshaler); ok {
		var out any
		if err := roundTrip(m, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return structFields(v)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		items := make([]any, v.Len())
		for i := range items {
			item, err := value(v.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		entries := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			entry, err := value(iter.Value())
			if err != nil {
				return nil, err
			}
			entries[fmt.Sprint(iter.Key().Interface())] = entry
		}
		return entries, nil

	default:
		return v.Interface(), nil
	}
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
