/*Package schema validates JSON documents against JSON schemas shipped
with the binary via embed.FS.
*/
package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates JSON objects against a set of compiled schemas,
// addressed by their $id.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidatorFromFS creates a new Validator from all .json files found at the
// top level of schemaFS. Every schema file must carry a $id; schemas cannot
// reference each other.
func NewValidatorFromFS(schemaFS embed.FS) (*Validator, error) {
	files, err := schemaFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("cannot read schema dir: %w", err)
	}

	v := Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := schemaFS.ReadFile(f.Name())
		if err != nil {
			return nil, fmt.Errorf("cannot read schema file '%s': %w", f.Name(), err)
		}
		var header struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema '%s'", err, f.Name())
		}
		if header.ID == "" {
			return nil, fmt.Errorf("schema '%s' does not contain $id", f.Name())
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", header.ID, err)
		}
		v.schemas[header.ID] = schema
	}
	return &v, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemas[schemaID]
	return ok
}

// ValidateStruct validates the given object against schemaID. If no error is
// returned, the object is valid.
func (v *Validator) ValidateStruct(obj interface{}, schemaID string) error {
	return v.validate(gojsonschema.NewGoLoader(obj), schemaID)
}

// ValidateString validates the given json document against schemaID. If no
// error is returned, the document is valid.
func (v *Validator) ValidateString(json, schemaID string) error {
	return v.validate(gojsonschema.NewStringLoader(json), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	schema, ok := v.schemas[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s: %s", schemaID, err)
	}

	if !result.Valid() {
		msg := "the document is not valid:\n"
		for _, e := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", e)
		}
		return errors.New(msg)
	}
	return nil
}
