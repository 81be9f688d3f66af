// Package fetch implements the data-acquisition service: cached, retried,
// priority-tiered loading of dashboard resources.
//
// A fetch checks the payload cache first, then makes up to a configured
// number of transport attempts with linearly increasing delay between them.
// Exhausted retries surface as a transport error carrying the final cause;
// [Service.FetchOrDefault] substitutes the registered default payload for
// the resource instead, so dashboard startup degrades rather than halts.
//
// [Service.LoadPrioritized] loads a mixed batch: critical and high tier
// resources strictly in sequence, normal and low tier resources
// concurrently.
package fetch

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/panelkit/panelkit/pkg/cache"
	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/httputil"
	"github.com/panelkit/panelkit/pkg/observability"
)

// Priority orders resources within a prioritized load.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	default:
		return "low"
	}
}

// Resource describes one payload to load.
type Resource struct {
	// Key identifies the resource and selects its default payload.
	Key string

	// Options select the endpoint and query for the transport call. They
	// are hashed into the cache key.
	Options cache.ResourceKeyOpts

	// Priority places the resource in a load tier.
	Priority Priority
}

// Result is the outcome of loading one resource.
type Result struct {
	Payload     []byte
	UsedDefault bool
	Err         error
}

// Config tunes the service. Zero values fall back to the defaults.
type Config struct {
	// Attempts is the number of transport attempts per fetch. Default 3.
	Attempts int

	// BaseDelay is the unit for the linear backoff between attempts:
	// the wait after attempt n is n times BaseDelay. Default 1s.
	BaseDelay time.Duration

	// TTL is how long fetched payloads stay fresh in the cache.
	// Default [cache.TTLResource].
	TTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.TTL <= 0 {
		c.TTL = cache.TTLResource
	}
	return c
}

// Service is the data-acquisition service. Safe for concurrent use.
type Service struct {
	cfg    Config
	store  cache.Cache
	keyer  cache.Keyer
	client *http.Client
	logger *log.Logger

	mu       sync.Mutex
	defaults map[string][]byte
	keys     map[string]struct{}
}

// New creates a service. A nil cache disables caching, a nil keyer uses the
// default key scheme, a nil client uses the standard endpoint client and a
// nil logger discards logs.
func New(cfg Config, store cache.Cache, keyer cache.Keyer, client *http.Client, logger *log.Logger) *Service {
	if store == nil {
		store = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if client == nil {
		client = httputil.NewHTTPClient()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		keyer:    keyer,
		client:   client,
		logger:   logger,
		defaults: make(map[string][]byte),
		keys:     make(map[string]struct{}),
	}
}

// RegisterDefault records the documented default payload substituted for a
// resource key when its retries are exhausted.
func (s *Service) RegisterDefault(key string, payload []byte) {
	s.mu.Lock()
	s.defaults[key] = payload
	s.mu.Unlock()
}

// Fetch loads one resource: cache first, then up to the configured number
// of transport attempts with linear backoff. On exhaustion it returns a
// transport error wrapping the final cause; it never substitutes defaults
// itself.
func (s *Service) Fetch(ctx context.Context, resource string, opts cache.ResourceKeyOpts) ([]byte, error) {
	taskID := uuid.NewString()
	start := time.Now()
	observability.Fetch().OnFetchStart(ctx, resource)

	key := s.keyer.ResourceKey(resource, opts)
	if data, ok, err := s.store.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, resource)
		observability.Fetch().OnFetchComplete(ctx, resource, 0, time.Since(start), nil)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, resource)

	var (
		payload  []byte
		attempts int
	)
	backoff := httputil.Linear(s.cfg.BaseDelay)
	err := httputil.Retry(ctx, s.cfg.Attempts, backoff, func() error {
		if attempts > 0 {
			delay := backoff(attempts)
			s.logger.Debug("retrying fetch",
				"task", taskID, "resource", resource, "attempt", attempts+1, "delay", delay)
			observability.Fetch().OnRetry(ctx, resource, attempts+1, delay)
		}
		attempts++

		data, err := httputil.GetJSON(ctx, s.client, opts.Endpoint+querySuffix(opts.Query))
		if err != nil {
			return err
		}
		payload = data
		return nil
	})
	observability.Fetch().OnFetchComplete(ctx, resource, attempts, time.Since(start), err)

	if err != nil {
		s.logger.Warn("fetch exhausted",
			"task", taskID, "resource", resource, "attempts", attempts, "err", err)
		return nil, errors.Wrap(errors.ErrCodeTransport, err,
			"fetch %q failed after %d attempts", resource, attempts)
	}

	if err := s.store.Set(ctx, key, payload, s.cfg.TTL); err != nil {
		s.logger.Warn("cache write failed", "task", taskID, "resource", resource, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, resource, len(payload))
		s.mu.Lock()
		s.keys[key] = struct{}{}
		s.mu.Unlock()
	}
	return payload, nil
}

// FetchOrDefault loads a resource, substituting its registered default
// payload when retries are exhausted. The returned flag reports whether the
// default was used. An error is returned only when the fetch failed and no
// default is registered for the key.
func (s *Service) FetchOrDefault(ctx context.Context, resource string, opts cache.ResourceKeyOpts) ([]byte, bool, error) {
	payload, err := s.Fetch(ctx, resource, opts)
	if err == nil {
		return payload, false, nil
	}

	s.mu.Lock()
	fallback, ok := s.defaults[resource]
	s.mu.Unlock()
	if !ok {
		return nil, false, err
	}

	s.logger.Info("substituting default payload", "resource", resource)
	observability.Fetch().OnDefaultSubstituted(ctx, resource)
	return fallback, true, nil
}

// LoadPrioritized loads a batch of resources by tier. Critical and high
// resources run strictly in sequence: tier order first, then declaration
// order, and a resource must either succeed or be replaced by its default
// before the next one starts. Normal and low resources are all issued
// together and awaited together; a failure in one does not block or cancel
// its siblings. The result map is keyed by resource key.
func (s *Service) LoadPrioritized(ctx context.Context, resources []Resource) map[string]Result {
	results := make(map[string]Result, len(resources))

	for _, tier := range []Priority{Critical, High} {
		for _, res := range resources {
			if res.Priority != tier {
				continue
			}
			payload, usedDefault, err := s.FetchOrDefault(ctx, res.Key, res.Options)
			results[res.Key] = Result{Payload: payload, UsedDefault: usedDefault, Err: err}
		}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, res := range resources {
		if res.Priority != Normal && res.Priority != Low {
			continue
		}
		wg.Add(1)
		go func(res Resource) {
			defer wg.Done()
			payload, usedDefault, err := s.FetchOrDefault(ctx, res.Key, res.Options)
			mu.Lock()
			results[res.Key] = Result{Payload: payload, UsedDefault: usedDefault, Err: err}
			mu.Unlock()
		}(res)
	}
	wg.Wait()

	return results
}

// ClearCache removes every payload this service has written, for
// user-triggered refreshes.
func (s *Service) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for key := range s.keys {
		keys = append(keys, key)
	}
	s.keys = make(map[string]struct{})
	s.mu.Unlock()

	var lastErr error
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func querySuffix(query string) string {
	if query == "" {
		return ""
	}
	return "?" + query
}
