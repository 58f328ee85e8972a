package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cannectors/wrangler/internal/pathutil"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

var (
	// ErrParse is returned by Load when the file cannot be decoded.
	ErrParse = errors.New("configuration parse failed")

	// ErrValidation is returned by Load when the document violates the schema.
	ErrValidation = errors.New("configuration validation failed")
)

// Load parses, validates and converts a pipeline file. Relative file paths in
// the pipeline are resolved against the directory holding the file. The
// Result is returned even on failure so callers can report every error.
func Load(path string) (*wrangler.Pipeline, *Result, error) {
	result := ParseConfig(path)
	if len(result.ParseErrors) > 0 {
		return nil, result, fmt.Errorf("%w: %s", ErrParse, result.ParseErrors[0].Error())
	}
	if len(result.ValidationErrors) > 0 {
		return nil, result, fmt.Errorf("%w: %d error(s), first: %s",
			ErrValidation, len(result.ValidationErrors), result.ValidationErrors[0].Error())
	}

	p, err := ConvertToPipeline(result.Data)
	if err != nil {
		return nil, result, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ResolvePaths(p, filepath.Dir(path)); err != nil {
		return nil, result, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return p, result, nil
}

// ResolvePaths rewrites every file path in p relative to baseDir.
func ResolvePaths(p *wrangler.Pipeline, baseDir string) error {
	resolve := func(field string, target *string) error {
		resolved, err := pathutil.Resolve(baseDir, *target)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*target = resolved
		return nil
	}

	if p.Input != nil {
		if err := resolve("input.path", &p.Input.Path); err != nil {
			return err
		}
	}
	if p.Output != nil {
		if err := resolve("output.path", &p.Output.Path); err != nil {
			return err
		}
		if err := resolve("output.errors", &p.Output.Errors); err != nil {
			return err
		}
	}
	if p.Metrics != nil {
		if err := resolve("metrics.file", &p.Metrics.File); err != nil {
			return err
		}
	}
	for name, ds := range p.Datasets {
		if err := resolve("datasets."+name+".path", &ds.Path); err != nil {
			return err
		}
		p.Datasets[name] = ds
	}
	return nil
}
