// Package app wires the dashboard services together through the service
// registry and drives the initial render.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/panelkit/panelkit/pkg/cache"
	"github.com/panelkit/panelkit/pkg/config"
	"github.com/panelkit/panelkit/pkg/fallback"
	"github.com/panelkit/panelkit/pkg/fetch"
	"github.com/panelkit/panelkit/pkg/health"
	"github.com/panelkit/panelkit/pkg/panel"
	"github.com/panelkit/panelkit/pkg/registry"
	"github.com/panelkit/panelkit/pkg/render"
	"github.com/panelkit/panelkit/pkg/render/svgchart"
)

// Service names used in the registry.
const (
	SvcConfig   = "config"
	SvcDocument = "document"
	SvcCache    = "cache"
	SvcFetcher  = "fetcher"
	SvcFallback = "fallback"
	SvcEngine   = "engine"
	SvcAdapter  = "adapter"
	SvcHistory  = "history"
	SvcMonitor  = "monitor"
)

// App is the assembled dashboard core.
type App struct {
	Config   config.Config
	Registry *registry.Registry
	Document *panel.Document
	Cache    cache.Cache
	Fetcher  *fetch.Service
	Fallback *fallback.Provider
	Adapter  *render.Adapter
	History  health.HistorySink
	Monitor  *health.Monitor

	logger *log.Logger
}

// Bootstrap registers every service, validates the dependency graph and
// resolves the assembled application out of the registry.
func Bootstrap(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	reg := registry.New(logger)

	if err := reg.Register(SvcConfig, registry.Value(cfg)); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcDocument, registry.Factory(func(deps ...any) (any, error) {
		return buildDocument(cfg), nil
	})); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcCache, registry.Factory(func(deps ...any) (any, error) {
		return buildCache(ctx, cfg.Cache)
	})); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcFetcher, registry.Factory(func(deps ...any) (any, error) {
		store := deps[0].(cache.Cache)
		svc := fetch.New(fetch.Config{
			Attempts:  cfg.Fetch.Attempts,
			BaseDelay: cfg.Fetch.BaseDelay.Duration,
			TTL:       cfg.Fetch.TTL.Duration,
		}, store, nil, nil, logger)
		for _, res := range cfg.Resources {
			if res.Default != "" {
				svc.RegisterDefault(res.Key, []byte(res.Default))
			}
		}
		return svc, nil
	}, SvcCache)); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcFallback, registry.Factory(func(deps ...any) (any, error) {
		doc := deps[0].(*panel.Document)
		return fallback.New(fallback.Config{
			AssetRoot:         cfg.Fallback.AssetRoot,
			Assets:            cfg.Fallback.Assets,
			MaxReapplications: cfg.Fallback.MaxReapplications,
		}, doc, logger), nil
	}, SvcDocument)); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcEngine, registry.Factory(func(deps ...any) (any, error) {
		return svgchart.New(deps[0].(*panel.Document)), nil
	}, SvcDocument)); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcAdapter, registry.Factory(func(deps ...any) (any, error) {
		doc := deps[0].(*panel.Document)
		engine := deps[1].(render.Engine)
		degrader := deps[2].(*fallback.Provider)
		return render.New(engine, doc, degrader, logger), nil
	}, SvcDocument, SvcEngine, SvcFallback)); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcHistory, registry.Factory(func(deps ...any) (any, error) {
		return buildHistory(ctx, cfg.History)
	})); err != nil {
		return nil, err
	}
	if err := reg.Register(SvcMonitor, registry.Factory(func(deps ...any) (any, error) {
		doc := deps[0].(*panel.Document)
		degrader := deps[1].(*fallback.Provider)
		sink := deps[2].(health.HistorySink)
		return health.New(health.Config{
			Interval:          cfg.Health.Interval.Duration,
			EmptyThreshold:    cfg.Health.EmptyThreshold,
			MaxRecovery:       cfg.Health.MaxRecovery,
			RecoveryBaseDelay: cfg.Health.RecoveryBaseDelay.Duration,
			DebounceDelay:     cfg.Health.DebounceDelay.Duration,
		}, doc, degrader, sink, logger), nil
	}, SvcDocument, SvcFallback, SvcHistory)); err != nil {
		return nil, err
	}

	if err := reg.ValidateDependencies(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Registry: reg, logger: logger}
	if err := app.resolve(); err != nil {
		return nil, err
	}

	app.Monitor.AddRecoverer(&chartRecoverer{app: app})
	for _, chart := range cfg.Charts {
		app.Monitor.RegisterChart(chart.Candidates[0], chart.Kind)
	}
	return app, nil
}

func (a *App) resolve() (err error) {
	if a.Document, err = resolveAs[*panel.Document](a.Registry, SvcDocument); err != nil {
		return err
	}
	if a.Cache, err = resolveAs[cache.Cache](a.Registry, SvcCache); err != nil {
		return err
	}
	if a.Fetcher, err = resolveAs[*fetch.Service](a.Registry, SvcFetcher); err != nil {
		return err
	}
	if a.Fallback, err = resolveAs[*fallback.Provider](a.Registry, SvcFallback); err != nil {
		return err
	}
	if a.Adapter, err = resolveAs[*render.Adapter](a.Registry, SvcAdapter); err != nil {
		return err
	}
	if a.History, err = resolveAs[health.HistorySink](a.Registry, SvcHistory); err != nil {
		return err
	}
	if a.Monitor, err = resolveAs[*health.Monitor](a.Registry, SvcMonitor); err != nil {
		return err
	}
	return nil
}

// resolveAs resolves a service and asserts its concrete type.
func resolveAs[T any](reg *registry.Registry, name string) (T, error) {
	var zero T
	instance, err := reg.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("service %q has unexpected type %T", name, instance)
	}
	return typed, nil
}

// LoadAndRender fetches every configured resource by tier and draws each
// chart. Failures degrade individual charts; they never abort the load.
func (a *App) LoadAndRender(ctx context.Context) {
	resources := make([]fetch.Resource, 0, len(a.Config.Resources))
	for _, res := range a.Config.Resources {
		tier, _ := res.Tier()
		resources = append(resources, fetch.Resource{
			Key:      res.Key,
			Options:  cache.ResourceKeyOpts{Endpoint: res.Endpoint, Query: res.Query},
			Priority: tier,
		})
	}
	results := a.Fetcher.LoadPrioritized(ctx, resources)

	for _, chart := range a.Config.Charts {
		a.renderChart(ctx, chart, results[chart.Resource])
	}
}

func (a *App) renderChart(ctx context.Context, chart config.Chart, res fetch.Result) {
	containerID := chart.Candidates[0]
	if res.Err != nil {
		a.Monitor.ReportError(containerID, res.Err)
		a.Fallback.ApplyFallback(ctx, containerID, "resource load failed")
		return
	}

	_, err := a.Adapter.Render(ctx, chart.Candidates, SeriesFromPayload(res.Payload), render.Layout{
		ChartType: chart.Kind,
		Width:     chart.Width,
		Height:    chart.Height,
		Title:     chart.Title,
	})
	if err != nil {
		a.Monitor.ReportError(containerID, err)
	}
}

// Close releases backend connections.
func (a *App) Close() error {
	return a.Cache.Close()
}

// chartRecoverer re-renders a chart during auto-recovery using the cached
// or default payload for its resource.
type chartRecoverer struct {
	app *App
}

func (r *chartRecoverer) Recover(ctx context.Context, containerID string) bool {
	for _, chart := range r.app.Config.Charts {
		for _, candidate := range chart.Candidates {
			if candidate != containerID {
				continue
			}
			res := r.app.resourceFor(chart.Resource)
			if res == nil {
				return false
			}
			payload, _, err := r.app.Fetcher.FetchOrDefault(ctx, res.Key,
				cache.ResourceKeyOpts{Endpoint: res.Endpoint, Query: res.Query})
			if err != nil {
				return false
			}
			ok, err := r.app.Adapter.Render(ctx, chart.Candidates, SeriesFromPayload(payload), render.Layout{
				ChartType: chart.Kind,
				Width:     chart.Width,
				Height:    chart.Height,
				Title:     chart.Title,
			})
			return ok && err == nil
		}
	}
	return false
}

func (a *App) resourceFor(key string) *config.Resource {
	for i := range a.Config.Resources {
		if a.Config.Resources[i].Key == key {
			return &a.Config.Resources[i]
		}
	}
	return nil
}

// SeriesFromPayload extracts series from a resource payload. Payloads are
// either a bare series array or an object with a "series" field; anything
// else yields no series and the render precondition degrades the chart.
func SeriesFromPayload(data []byte) []render.Series {
	var direct []render.Series
	if err := json.Unmarshal(data, &direct); err == nil && len(direct) > 0 {
		return direct
	}
	var wrapped struct {
		Series []render.Series `json:"series"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		return wrapped.Series
	}
	return nil
}

func buildDocument(cfg config.Config) *panel.Document {
	doc := panel.NewDocument()
	for _, chart := range cfg.Charts {
		doc.Add(chart.Candidates[0])
	}
	return doc
}

func buildCache(ctx context.Context, cfg config.CacheCfg) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "file":
		return cache.NewFileCache(cfg.Dir)
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "null":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func buildHistory(ctx context.Context, cfg config.History) (health.HistorySink, error) {
	switch cfg.Backend {
	case "none":
		return health.NullSink{}, nil
	case "", "memory":
		return health.NewMemorySink(cfg.Limit), nil
	case "mongo":
		return health.NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
