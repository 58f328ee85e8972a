package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cannectors/wrangler/pkg/wrangler"
)

// ConvertToPipeline converts a validated document into a Pipeline.
//
// The document is expected to have this structure:
//
//	name: orders
//	recipe: [...]            # or a multi-line string
//	expressionLanguage: expr
//	context: {name, environment, properties, services}
//	datasets: {<name>: {path, table, key}}
//	input: {path, format}
//	output: {path, errors, format}
//	execution: {batchSize, workers}
//	metrics: {file, pushgateway, job}
func ConvertToPipeline(data map[string]interface{}) (*wrangler.Pipeline, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	name, ok := data["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("missing required field 'name'")
	}
	p := &wrangler.Pipeline{Name: name}
	p.Description, _ = data["description"].(string)
	p.ExpressionLanguage, _ = data["expressionLanguage"].(string)

	recipe, err := convertRecipe(data["recipe"])
	if err != nil {
		return nil, err
	}
	p.Recipe = recipe

	if ctx, ok := data["context"].(map[string]interface{}); ok {
		p.Context.Name, _ = ctx["name"].(string)
		p.Context.Environment, _ = ctx["environment"].(string)
		if p.Context.Properties, err = stringMap(ctx["properties"], "context.properties"); err != nil {
			return nil, err
		}
		if p.Context.Services, err = stringMap(ctx["services"], "context.services"); err != nil {
			return nil, err
		}
	}
	if p.Context.Name == "" {
		p.Context.Name = name
	}

	if datasets, ok := data["datasets"].(map[string]interface{}); ok {
		p.Datasets = make(map[string]wrangler.DatasetConfig, len(datasets))
		for _, ds := range sortedKeys(datasets) {
			m, ok := datasets[ds].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("invalid dataset %q: expected object", ds)
			}
			p.Datasets[ds] = wrangler.DatasetConfig{
				Path:  str(m, "path"),
				Table: str(m, "table"),
				Key:   str(m, "key"),
			}
		}
	}

	if in, ok := data["input"].(map[string]interface{}); ok {
		p.Input = &wrangler.InputConfig{Path: str(in, "path"), Format: str(in, "format")}
	}
	if out, ok := data["output"].(map[string]interface{}); ok {
		p.Output = &wrangler.OutputConfig{
			Path:   str(out, "path"),
			Errors: str(out, "errors"),
			Format: str(out, "format"),
		}
	}

	if exec, ok := data["execution"].(map[string]interface{}); ok {
		p.Execution.BatchSize = intValue(exec["batchSize"])
		p.Execution.Workers = intValue(exec["workers"])
	}

	if m, ok := data["metrics"].(map[string]interface{}); ok {
		p.Metrics = &wrangler.MetricsConfig{
			File:        str(m, "file"),
			Pushgateway: str(m, "pushgateway"),
			Job:         str(m, "job"),
		}
	}

	return p, nil
}

// convertRecipe accepts a list of lines or a multi-line string. Lines are kept
// as written so recipe line numbers in errors match the source.
func convertRecipe(v interface{}) ([]string, error) {
	var lines []string
	switch t := v.(type) {
	case string:
		lines = strings.Split(strings.TrimRight(t, "\n"), "\n")
	case []interface{}:
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("invalid recipe line %d: expected string, got %T", i+1, e)
			}
			lines = append(lines, s)
		}
	default:
		return nil, fmt.Errorf("missing or invalid 'recipe': expected string or list of strings")
	}

	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return lines, nil
		}
	}
	return nil, fmt.Errorf("recipe has no directives")
}

func stringMap(v interface{}, field string) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid '%s': expected object", field)
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("invalid value for %s.%s: expected string, got %T", field, k, e)
		}
		out[k] = s
	}
	return out, nil
}

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
