// Package schema validates imported résumé documents against an embedded
// JSON Schema before they replace the working document.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"cvbuilder/internal/cv"
)

//go:embed document.schema.json
var documentSchema string

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Validate checks raw JSON against the document schema.
func Validate(raw []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// Decode validates raw and returns the document with empty lists normalised
// and missing item ids filled in.
func Decode(raw []byte) (cv.Document, error) {
	if err := Validate(raw); err != nil {
		return cv.Document{}, err
	}
	var doc cv.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cv.Document{}, fmt.Errorf("decode document: %w", err)
	}
	doc.Normalize()
	fillIDs(&doc)
	return doc, nil
}

func fillIDs(doc *cv.Document) {
	for i := range doc.Experience {
		if doc.Experience[i].ID == "" {
			doc.Experience[i].ID = cv.NewID()
		}
	}
	for i := range doc.Education {
		if doc.Education[i].ID == "" {
			doc.Education[i].ID = cv.NewID()
		}
	}
	for i := range doc.Certificates {
		if doc.Certificates[i].ID == "" {
			doc.Certificates[i].ID = cv.NewID()
		}
	}
	for i := range doc.Hobbies {
		if doc.Hobbies[i].ID == "" {
			doc.Hobbies[i].ID = cv.NewID()
		}
	}
	for i := range doc.Portfolio {
		if doc.Portfolio[i].ID == "" {
			doc.Portfolio[i].ID = cv.NewID()
		}
	}
}
