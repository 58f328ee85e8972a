// Package execctx implements the host side of directive.ExecutorContext.
//
// A Context owns the run's metrics, properties and service directory and
// opens lookup datasets on first use. It is safe for concurrent use by
// parallel recipe workers.
package execctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"sync"

	"github.com/cannectors/wrangler/internal/directive"
	"github.com/cannectors/wrangler/internal/logger"
	"github.com/cannectors/wrangler/internal/lookup"
)

// ErrUnknownDataset is returned by Provide for datasets that are not configured.
var ErrUnknownDataset = errors.New("unknown dataset")

// Config describes a Context.
type Config struct {
	Name        string
	Environment directive.Environment

	// Properties are exposed verbatim to directives
	Properties map[string]string

	// Services maps "application/service" to a base URL
	Services map[string]string

	// Datasets are opened lazily by Provide
	Datasets map[string]lookup.Config
}

// Context is a directive.ExecutorContext.
type Context struct {
	name        string
	environment directive.Environment
	properties  map[string]string
	services    map[string]*url.URL
	datasets    map[string]lookup.Config
	metrics     *Metrics

	mu     sync.Mutex
	tables map[string]*lookup.Table
}

var _ directive.ExecutorContext = (*Context)(nil)

// New validates cfg and builds a Context. A nil metrics records nothing.
func New(cfg Config, metrics *Metrics) (*Context, error) {
	env := cfg.Environment
	if env == "" {
		env = directive.EnvironmentTransform
	}
	switch env {
	case directive.EnvironmentTransform, directive.EnvironmentService, directive.EnvironmentTesting:
	default:
		return nil, fmt.Errorf("execctx: unknown environment %q", env)
	}

	services := make(map[string]*url.URL, len(cfg.Services))
	for key, raw := range cfg.Services {
		app, svc, ok := splitServiceKey(key)
		if !ok {
			return nil, fmt.Errorf("execctx: service key %q must be <application>/<service>", key)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("execctx: service %q has invalid URL %q", key, raw)
		}
		services[app+"/"+svc] = u
	}

	for name, ds := range cfg.Datasets {
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("execctx: dataset %q: %w", name, err)
		}
	}

	return &Context{
		name:        cfg.Name,
		environment: env,
		properties:  maps.Clone(cfg.Properties),
		services:    services,
		datasets:    maps.Clone(cfg.Datasets),
		metrics:     metrics,
		tables:      make(map[string]*lookup.Table),
	}, nil
}

func splitServiceKey(key string) (string, string, bool) {
	app, svc, ok := strings.Cut(key, "/")
	app, svc = strings.TrimSpace(app), strings.TrimSpace(svc)
	return app, svc, ok && app != "" && svc != "" && !strings.Contains(svc, "/")
}

// Environment implements directive.ExecutorContext.
func (c *Context) Environment() directive.Environment { return c.environment }

// ContextName implements directive.ExecutorContext.
func (c *Context) ContextName() string { return c.name }

// Properties implements directive.ExecutorContext. The returned map is a copy.
func (c *Context) Properties() map[string]string {
	out := maps.Clone(c.properties)
	if out == nil {
		out = map[string]string{}
	}
	return out
}

// Metrics implements directive.ExecutorContext.
func (c *Context) Metrics() directive.Metrics {
	if c.metrics == nil {
		return discard{}
	}
	return c.metrics
}

// ServiceURL implements directive.ExecutorContext.
func (c *Context) ServiceURL(applicationID, serviceID string) *url.URL {
	u, ok := c.services[applicationID+"/"+serviceID]
	if !ok {
		return nil
	}
	clone := *u
	return &clone
}

// Provide implements directive.ExecutorContext. Tables are opened once and
// shared by every caller. A "key" property overrides the configured key
// column.
func (c *Context) Provide(dataset string, props map[string]string) (directive.Lookup, error) {
	cfg, ok := c.datasets[dataset]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownDataset, dataset)
	}
	if key := props["key"]; key != "" {
		cfg.Key = key
	}
	if cfg.Name == "" {
		cfg.Name = dataset
	}
	cacheKey := dataset + "\x00" + cfg.Key

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[cacheKey]; ok {
		return t, nil
	}

	t, err := lookup.Open(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	c.tables[cacheKey] = t
	logger.Debug("dataset opened",
		slog.String("dataset", dataset),
		slog.String("path", cfg.Path),
		slog.String("table", cfg.Table),
	)
	return t, nil
}

// Close closes every opened dataset.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, t := range c.tables {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.tables, key)
	}
	return errors.Join(errs...)
}

type discard struct{}

func (discard) Count(string, int)     {}
func (discard) Gauge(string, float64) {}
