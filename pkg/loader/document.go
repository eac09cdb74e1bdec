package loader

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/multistep"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// ErrInvalidDocument marks documents that cannot be parsed or bound.
var ErrInvalidDocument = errors.New("loader: invalid document")

// Document is the declarative description of a form or multi-step form.
// A document with Steps describes a multi-step form; otherwise Fields
// describe a single form.
type Document struct {
	Title     string              `json:"title,omitempty" yaml:"title,omitempty"`
	Locale    string              `json:"locale,omitempty" yaml:"locale,omitempty"`
	Messages  validation.Messages `json:"messages,omitempty" yaml:"messages,omitempty"`
	Fields    []FieldSpec         `json:"fields,omitempty" yaml:"fields,omitempty"`
	Steps     []StepSpec          `json:"steps,omitempty" yaml:"steps,omitempty"`
	MultiStep multistep.Config    `json:"multistep,omitempty" yaml:"multistep,omitempty"`
}

// FieldSpec describes one field. Callback entries name functions bound
// through a Registry; Condition is a condition expression or "@name" for a
// registered condition.
type FieldSpec struct {
	ID          string            `json:"id" yaml:"id"`
	Type        string            `json:"type,omitempty" yaml:"type,omitempty"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Value       any               `json:"value,omitempty" yaml:"value,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled    bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Hidden      bool              `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Multiple    bool              `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	MinLength   int               `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength   int               `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern     string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Options     []model.Option    `json:"options,omitempty" yaml:"options,omitempty"`
	DependsOn   []string          `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Loader      string            `json:"loader,omitempty" yaml:"loader,omitempty"`
	Endpoint    *options.Endpoint `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	OnChange    string            `json:"onChange,omitempty" yaml:"onChange,omitempty"`
	Computed    string            `json:"computed,omitempty" yaml:"computed,omitempty"`
	Validation  string            `json:"validation,omitempty" yaml:"validation,omitempty"`
	Resolve     string            `json:"resolve,omitempty" yaml:"resolve,omitempty"`
	Condition   string            `json:"condition,omitempty" yaml:"condition,omitempty"`
	Children    []FieldSpec       `json:"children,omitempty" yaml:"children,omitempty"`
}

// StepSpec describes one step. Validation names a registered step
// validation, or "required" for the built-in check of required fields.
type StepSpec struct {
	ID         string      `json:"id" yaml:"id"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle   string      `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Component  string      `json:"component,omitempty" yaml:"component,omitempty"`
	Fields     []FieldSpec `json:"fields,omitempty" yaml:"fields,omitempty"`
	Condition  string      `json:"condition,omitempty" yaml:"condition,omitempty"`
	Validation string      `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// IsMultiStep reports whether the document describes steps.
func (d Document) IsMultiStep() bool {
	return len(d.Steps) > 0
}

// Parse decodes a JSON or YAML document. JSON is attempted first.
func Parse(data []byte, source string) (Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, goerr.Wrap(ErrInvalidDocument, "document is empty", goerr.V("source", source))
	}

	var doc Document
	jsonErr := json.Unmarshal(data, &doc)
	if jsonErr == nil {
		return doc, nil
	}

	doc = Document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, goerr.Wrap(ErrInvalidDocument, "invalid JSON or YAML",
			goerr.V("source", source),
			goerr.V("json", jsonErr.Error()),
			goerr.V("yaml", err.Error()),
		)
	}
	return doc, nil
}

// LoadFile reads and parses a document from disk.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, goerr.Wrap(err, "failed to read document", goerr.V("path", path))
	}
	return Parse(data, path)
}

// LoadFS reads and parses a document from fsys.
func LoadFS(fsys fs.FS, path string) (Document, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Document{}, goerr.Wrap(err, "failed to read document", goerr.V("path", path))
	}
	return Parse(data, path)
}

// EncodeYAML renders a document as YAML.
func EncodeYAML(doc Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode document")
	}
	return out, nil
}

// EncodeJSON renders a document as indented JSON.
func EncodeJSON(doc Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode document")
	}
	return out, nil
}
