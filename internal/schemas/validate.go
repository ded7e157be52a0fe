// Package schemas checks LLM replies against embedded JSON Schemas.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Embedded schema names
const (
	Verification = "verification"
	SkillList    = "skill_list"
)

// FieldError is one schema violation
type FieldError struct {
	Field   string // "(root)" for the document itself
	Message string
}

// ValidationError lists every violation of a document against a schema
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("%s schema: %s", e.Schema, strings.Join(parts, "; "))
}

// LoadError is a schema that could not be read or compiled, or a document
// that is not JSON at all
type LoadError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s schema: %s: %v", e.Schema, e.Message, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Schema is a compiled JSON Schema
type Schema struct {
	name     string
	compiled *gojsonschema.Schema
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*Schema{}
)

// Get returns the named embedded schema, compiling it on first use
func Get(name string) (*Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}

	data, err := schemaFiles.ReadFile(name + ".schema.json")
	if err != nil {
		return nil, &LoadError{Schema: name, Message: "unknown schema", Cause: err}
	}
	s, err := Compile(name, string(data))
	if err != nil {
		return nil, err
	}
	compiled[name] = s
	return s, nil
}

// Compile builds a Schema from its JSON source
func Compile(name, source string) (*Schema, error) {
	c, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, &LoadError{Schema: name, Message: "invalid schema", Cause: err}
	}
	return &Schema{name: name, compiled: c}, nil
}

// Validate checks a JSON document. Violations come back as *ValidationError;
// a document that does not parse comes back as *LoadError.
func (s *Schema) Validate(doc string) error {
	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return &LoadError{Schema: s.name, Message: "unreadable document", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: s.name, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// Validate checks doc against the named embedded schema
func Validate(name, doc string) error {
	s, err := Get(name)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}
