package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed profile.schema.json
var schemaJSON string

const schemaURL = "https://kiro-banking.local/schemas/profile.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func profileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader([]byte(schemaJSON))); err != nil {
			schemaErr = fmt.Errorf("profile schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("profile schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Load reads a YAML profile file.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML profile, checks it against the profile schema and
// validates the result. A document naming a built-in base profile only
// overrides the fields it sets; tags are merged and lists replaced. An
// omitted enableSecurityChecks means true.
func Parse(data []byte) (Profile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if raw == nil {
		return Profile{}, fmt.Errorf("%w: document is empty", ErrInvalidProfile)
	}

	doc, err := jsonValue(raw)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	schema, err := profileSchema()
	if err != nil {
		return Profile{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	var header struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}

	// Checks stay on unless the document turns them off.
	p := Profile{EnableSecurityChecks: true}
	if header.Base != "" {
		if p, err = Select(header.Base); err != nil {
			return Profile{}, err
		}
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// jsonValue converts a decoded YAML document into the value shapes the
// schema validator expects, with numbers as json.Number.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, ok := out.(map[string]any); !ok {
		return nil, errors.New("profile must be a mapping")
	}
	return out, nil
}
