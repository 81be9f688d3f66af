// Package fallback implements degraded mode: substituting a static asset or
// a neutral placeholder into a chart container when live rendering is
// unavailable.
package fallback

import (
	"context"
	"fmt"
	"html"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/panelkit/panelkit/pkg/observability"
	"github.com/panelkit/panelkit/pkg/panel"
)

// DefaultMaxReapplications bounds fallback churn per container.
const DefaultMaxReapplications = 3

// Config tunes the provider.
type Config struct {
	// AssetRoot is the fixed root path static images are served from.
	AssetRoot string

	// Assets maps container ids to static image filenames. Unmapped ids
	// get a neutral placeholder instead.
	Assets map[string]string

	// MaxReapplications caps how often a fallback is re-rendered into the
	// same container. Default 3.
	MaxReapplications int
}

func (c Config) withDefaults() Config {
	if c.MaxReapplications <= 0 {
		c.MaxReapplications = DefaultMaxReapplications
	}
	return c
}

// Provider applies fallbacks into a document's containers. Safe for
// concurrent use.
type Provider struct {
	cfg    Config
	doc    *panel.Document
	logger *log.Logger

	mu      sync.Mutex
	applied map[string]int
}

// New creates a provider for the given document. A nil logger discards
// logs.
func New(cfg Config, doc *panel.Document, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Provider{
		cfg:     cfg.withDefaults(),
		doc:     doc,
		logger:  logger,
		applied: make(map[string]int),
	}
}

// ApplyFallback substitutes a static visual into the container. With a
// mapped asset it renders an image substitute carrying a title and a static
// provenance notice and returns true; without one it renders a neutral
// "temporarily unavailable" notice and returns false. Either way the
// container never stays blank. Reapplication into the same container is
// capped; once the cap is reached the existing fallback is left in place.
func (p *Provider) ApplyFallback(ctx context.Context, containerID, reason string) bool {
	c, ok := p.doc.Container(containerID)
	if !ok {
		p.logger.Warn("fallback target missing", "container", containerID)
		return false
	}

	asset, mapped := p.cfg.Assets[containerID]

	p.mu.Lock()
	count := p.applied[containerID]
	if count >= p.cfg.MaxReapplications {
		p.mu.Unlock()
		p.logger.Debug("fallback reapplication cap reached", "container", containerID)
		return mapped && c.IsFallback()
	}
	p.applied[containerID] = count + 1
	p.mu.Unlock()

	observability.Render().OnFallback(ctx, containerID, reason)
	p.logger.Info("applying fallback", "container", containerID, "reason", reason)

	if !mapped {
		c.SetFallbackContent(placeholderMarkup(containerID))
		return false
	}

	c.SetFallbackContent(assetMarkup(containerID, path.Join(p.cfg.AssetRoot, asset)))
	return true
}

// BatchApplyFallbacks applies fallbacks across many containers, returning a
// per-container success flag. Used for bulk degradation when the rendering
// engine itself appears down.
func (p *Provider) BatchApplyFallbacks(ctx context.Context, containerIDs []string, reason string) map[string]bool {
	results := make(map[string]bool, len(containerIDs))
	for _, id := range containerIDs {
		results[id] = p.ApplyFallback(ctx, id, reason)
	}
	return results
}

// ResetContainer clears the reapplication counter, typically after a
// successful live re-render.
func (p *Provider) ResetContainer(containerID string) {
	p.mu.Lock()
	delete(p.applied, containerID)
	p.mu.Unlock()
}

// assetMarkup renders the image substitute with a title and a provenance
// notice.
func assetMarkup(containerID, src string) string {
	return fmt.Sprintf(
		`<figure class="chart-fallback"><img src=%q alt=%q/><figcaption>%s (static snapshot)</figcaption></figure>`,
		src, titleFor(containerID), html.EscapeString(titleFor(containerID)))
}

// placeholderMarkup renders the neutral notice for unmapped containers.
func placeholderMarkup(containerID string) string {
	return fmt.Sprintf(
		`<div class="chart-unavailable" data-container=%q><p>This chart is temporarily unavailable.</p></div>`,
		containerID)
}

// titleFor derives a human-readable title from a container id, e.g.
// "chart-fraud-trends" becomes "Fraud Trends".
func titleFor(containerID string) string {
	parts := strings.Split(containerID, "-")
	var words []string
	for _, part := range parts {
		if part == "" || part == "chart" {
			continue
		}
		words = append(words, strings.ToUpper(part[:1])+part[1:])
	}
	if len(words) == 0 {
		return containerID
	}
	return strings.Join(words, " ")
}
