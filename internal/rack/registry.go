package rack

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rack_schema.json
var schemaJSON []byte

//go:embed rack_template.yaml
var templateYAML string

const schemaURL = "rack_schema.json"

// Registry is the persisted catalog of named racks.
type Registry struct {
	Issue int                  `yaml:"issue" json:"issue"`
	Size  int                  `yaml:"size" json:"size"`
	Use   string               `yaml:"use,omitempty" json:"use,omitempty"`
	Racks map[string][]ToolDef `yaml:"racks" json:"racks"`
}

// ToolDef is one tool of a named rack. Exactly one of Drill and Router is set,
// in millimetres. A nil Number lets the rack pick the slot.
type ToolDef struct {
	Number *int     `yaml:"number,omitempty" json:"number,omitempty"`
	Drill  *float64 `yaml:"drill,omitempty" json:"drill,omitempty"`
	Router *float64 `yaml:"router,omitempty" json:"router,omitempty"`
}

// Names returns the rack names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.Racks))
	for name := range r.Racks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadKind classifies why a rack file could not be used.
type LoadKind int

const (
	LoadMissing LoadKind = iota + 1
	LoadRead
	LoadParse
	LoadSchema
)

func (k LoadKind) String() string {
	switch k {
	case LoadMissing:
		return "missing"
	case LoadRead:
		return "unreadable"
	case LoadParse:
		return "not valid YAML"
	case LoadSchema:
		return "schema violation"
	default:
		return "unknown"
	}
}

// LoadError explains why ReadRegistry returned no registry. Problems lists
// every schema violation for LoadSchema.
type LoadError struct {
	Kind     LoadKind
	Path     string
	Err      error
	Problems []string
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("rack file %s: %s", e.Path, e.Kind)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("rack schema: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// ReadRegistry loads and validates the rack file at path. Any failure is a
// *LoadError; an invalid document is rejected as a whole.
func ReadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Registry{}, &LoadError{Kind: LoadMissing, Path: path, Err: err}
		}
		return Registry{}, &LoadError{Kind: LoadRead, Path: path, Err: err}
	}
	return ParseRegistry(path, data)
}

// ParseRegistry validates and decodes a rack document. path is only used in
// errors.
func ParseRegistry(path string, data []byte) (Registry, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Registry{}, &LoadError{Kind: LoadParse, Path: path, Err: err}
	}

	// The validator works on JSON values, so normalise through encoding/json.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Registry{}, &LoadError{Kind: LoadParse, Path: path, Err: err}
	}
	var inst interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return Registry{}, &LoadError{Kind: LoadParse, Path: path, Err: err}
	}

	if err := compiledSchema.Validate(inst); err != nil {
		return Registry{}, &LoadError{Kind: LoadSchema, Path: path, Err: err, Problems: schemaProblems(err)}
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return Registry{}, &LoadError{Kind: LoadParse, Path: path, Err: err}
	}
	if reg.Racks == nil {
		reg.Racks = map[string][]ToolDef{}
	}
	return reg, nil
}

// schemaProblems flattens a validation error into one line per failing leaf.
func schemaProblems(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			loc := v.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, v.Message))
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

// WriteRegistry saves reg to path in the load format.
func WriteRegistry(path string, reg Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rack directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# pcbdrill rack configuration\n# Saved %s\n", time.Now().Format("2006-01-02 15:04:05"))
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(reg); err != nil {
		return fmt.Errorf("failed to encode rack file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode rack file: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write rack file: %w", err)
	}
	return nil
}

// WriteTemplate creates a fresh rack file from the built-in template, stamped
// with the creation time.
func WriteTemplate(path string, now time.Time) error {
	tmpl, err := template.New("rack").Parse(templateYAML)
	if err != nil {
		return fmt.Errorf("failed to parse rack template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Created string }{now.Format("2006-01-02 15:04:05")}); err != nil {
		return fmt.Errorf("failed to render rack template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rack directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write rack template: %w", err)
	}
	return nil
}
