package questiongen

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const elementSchemaURL = "schema://question-element.json"

// elementSchema is the minimum shape a model-produced element must have
// before it is cleaned: a non-empty question string and an answers object.
// Everything else is checked field by field during cleaning.
const elementSchema = `{
	"type": "object",
	"required": ["question", "answers"],
	"properties": {
		"question": {"type": "string", "minLength": 1},
		"answers": {"type": "object"}
	}
}`

var (
	compileOnce     sync.Once
	compiledElement *jsonschema.Schema
	compileErr      error
)

// compiledElementSchema compiles elementSchema once per process.
func compiledElementSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(elementSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(elementSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledElement, compileErr = c.Compile(elementSchemaURL)
	})
	return compiledElement, compileErr
}

// validateElement checks one raw element against the element schema.
func validateElement(raw []byte) error {
	schema, err := compiledElementSchema()
	if err != nil {
		return fmt.Errorf("compile element schema: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(v)
}
