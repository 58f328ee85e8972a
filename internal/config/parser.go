package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseFile decodes a pipeline file without validating it. The format comes
// from the extension, or from the content when the extension is unknown.
func ParseFile(filepath string) *ParseResult {
	result := &ParseResult{FilePath: filepath}

	content, err := os.ReadFile(filepath)
	if err != nil {
		result.Errors = append(result.Errors, ParseError{
			Path:    filepath,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	format := DetectFormat(filepath)
	if format == "" {
		format = sniffFormat(string(content))
	}

	parsed := ParseString(string(content), format)
	parsed.FilePath = filepath
	for i := range parsed.Errors {
		if parsed.Errors[i].Path == "" {
			parsed.Errors[i].Path = filepath
		}
	}
	return parsed
}

// ParseString decodes content in the given format. An empty format is sniffed.
func ParseString(content, format string) *ParseResult {
	if format == "" {
		format = sniffFormat(content)
	}
	switch format {
	case FormatJSON:
		return ParseJSONString(content)
	case FormatYAML:
		return ParseYAMLString(content)
	case FormatTOML:
		return ParseTOMLString(content)
	case "":
		return &ParseResult{Errors: []ParseError{{
			Message: "unable to detect configuration format: not valid JSON, YAML or TOML",
			Type:    ErrorTypeFormat,
		}}}
	default:
		return &ParseResult{Format: format, Errors: []ParseError{{
			Message: fmt.Sprintf("unsupported format: %s", format),
			Type:    ErrorTypeFormat,
		}}}
	}
}

// ParseConfig parses and validates a pipeline file.
func ParseConfig(filepath string) *Result {
	return validated(ParseFile(filepath))
}

// ParseConfigString parses and validates pipeline content. If format is
// empty it is detected from the content.
func ParseConfigString(content, format string) *Result {
	return validated(ParseString(content, format))
}

func validated(parsed *ParseResult) *Result {
	result := &Result{
		Data:        parsed.Data,
		ParseErrors: parsed.Errors,
		FilePath:    parsed.FilePath,
		Format:      parsed.Format,
	}
	if !parsed.IsValid() {
		return result
	}
	result.ValidationErrors = ValidateConfig(parsed.Data).Errors
	return result
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(filepath string) string {
	switch strings.ToLower(path.Ext(filepath)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return ""
	}
}

func sniffFormat(content string) string {
	switch {
	case IsJSON(content):
		return FormatJSON
	case IsTOML(content):
		return FormatTOML
	case IsYAML(content):
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON checks if the content appears to be JSON.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML checks if the content decodes as a YAML document.
// JSON is also valid YAML, so this may return true for JSON content.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	err := yaml.Unmarshal([]byte(content), &data)
	return err == nil && data != nil
}

// IsTOML checks if the content decodes as a TOML document with at least one
// "key = value" pair. YAML mappings never use '=', so they are not mistaken for TOML.
func IsTOML(content string) bool {
	if !strings.Contains(content, "=") {
		return false
	}
	var data map[string]interface{}
	_, err := toml.Decode(content, &data)
	return err == nil && len(data) > 0
}

// ParseJSONString decodes a JSON object.
func ParseJSONString(content string) *ParseResult {
	result := &ParseResult{Format: FormatJSON}

	content = strings.TrimSpace(content)
	if content == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected JSON object",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseJSONError(err, content))
		return result
	}
	return asDocument(result, data, "JSON object")
}

func parseJSONError(err error, content string) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		parseErr.Offset = syntaxErr.Offset
		parseErr.Line, parseErr.Column = offsetToLineColumn(content, syntaxErr.Offset)
		parseErr.Message = fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	}
	return parseErr
}

// offsetToLineColumn converts a byte offset to 1-based line and column numbers.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// ParseYAMLString decodes a YAML mapping.
func ParseYAMLString(content string) *ParseResult {
	result := &ParseResult{Format: FormatYAML}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected YAML document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		result.Errors = append(result.Errors, parseYAMLError(err))
		return result
	}
	return asDocument(result, data, "YAML mapping")
}

func parseYAMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		parseErr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	// yaml.v3 reports positions only in the message: "yaml: line N: ...".
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		parseErr.Line = line
	}
	return parseErr
}

// ParseTOMLString decodes a TOML document.
func ParseTOMLString(content string) *ParseResult {
	result := &ParseResult{Format: FormatTOML}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, ParseError{
			Message: "empty content: expected TOML document",
			Type:    ErrorTypeSyntax,
		})
		return result
	}

	var data map[string]interface{}
	if _, err := toml.Decode(content, &data); err != nil {
		result.Errors = append(result.Errors, parseTOMLError(err))
		return result
	}
	return asDocument(result, data, "TOML table")
}

func parseTOMLError(err error) ParseError {
	parseErr := ParseError{
		Message: err.Error(),
		Type:    ErrorTypeSyntax,
	}

	var tomlErr toml.ParseError
	if errors.As(err, &tomlErr) {
		parseErr.Line = tomlErr.Position.Line
		parseErr.Message = fmt.Sprintf("TOML syntax error: %s", tomlErr.Message)
	}
	return parseErr
}

// asDocument stores data as the result document. The value must be a mapping;
// numbers and nested containers are normalized so that all three formats
// produce the same shapes (float64, []interface{}, map[string]interface{}).
func asDocument(result *ParseResult, data interface{}, want string) *ParseResult {
	if data == nil {
		return result
	}
	doc, ok := normalize(data).(map[string]interface{})
	if !ok {
		result.Errors = append(result.Errors, ParseError{
			Message: fmt.Sprintf("invalid configuration: expected %s, got %T", want, data),
			Type:    ErrorTypeFormat,
		})
		return result
	}
	result.Data = doc
	return result
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}
