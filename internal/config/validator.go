package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/pipeline-schema.json
var embeddedSchema []byte

const schemaURL = "https://cannectors.io/schemas/wrangler/v1/pipeline-schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// EmbeddedSchema returns the JSON schema pipeline files are validated against.
func EmbeddedSchema() []byte {
	return embeddedSchema
}

func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var schemaDoc interface{}
		if err := json.Unmarshal(embeddedSchema, &schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		var err error
		compiledSchema, err = compiler.Compile(schemaURL)
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", err)
		}
	})

	if schemaInitErr != nil {
		return nil, schemaInitErr
	}
	return compiledSchema, nil
}

// ValidateConfig validates a decoded pipeline document against the schema.
func ValidateConfig(data map[string]interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(data) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "required",
			Message: "configuration is empty",
		})
		return result
	}

	schema, err := getCompiledSchema()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "schema",
			Message: fmt.Sprintf("failed to load schema: %v", err),
		})
		return result
	}

	if err := schema.Validate(data); err != nil {
		result.Valid = false
		if detailed, ok := err.(*jsonschema.ValidationError); ok {
			result.Errors = convertValidationErrors(detailed, message.NewPrinter(language.English))
		}
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "/",
				Type:    "validation",
				Message: err.Error(),
			})
		}
	}
	return result
}

// convertValidationErrors flattens the error tree into its leaves, which name
// the keyword that actually failed.
func convertValidationErrors(err *jsonschema.ValidationError, p *message.Printer) []ValidationError {
	if len(err.Causes) == 0 {
		if err.ErrorKind == nil {
			return nil
		}
		return []ValidationError{{
			Path:    formatInstanceLocation(err.InstanceLocation),
			Type:    extractErrorType(err.ErrorKind.KeywordPath()),
			Message: err.ErrorKind.LocalizedString(p),
		}}
	}

	var out []ValidationError
	for _, cause := range err.Causes {
		out = append(out, convertValidationErrors(cause, p)...)
	}
	return out
}

func formatInstanceLocation(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

// extractErrorType maps the failing schema keyword to a short category.
func extractErrorType(keywordPath []string) string {
	if len(keywordPath) == 0 {
		return "validation"
	}
	switch kw := keywordPath[len(keywordPath)-1]; kw {
	case "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum":
		return "range"
	case "minLength", "maxLength", "minItems", "maxItems":
		return "length"
	case "required", "type", "pattern", "enum", "format", "additionalProperties", "oneOf", "propertyNames":
		return kw
	default:
		return "validation"
	}
}
