// Package catalog caches, per provider, the most recently fetched list of
// available model identifiers. The tier resolver consumes it read-only;
// refreshes are best-effort and a failed fetch keeps the previous entry, so
// the cache only ever moves forward.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/perchlabs/perch/internal/kv"
	"github.com/perchlabs/perch/pkg/models"
)

// Catalog is the process-wide model catalog cache. The refresh path is its
// only writer. Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	store     kv.Store
	providers map[string]models.AIProvider
	lists     map[string][]string
}

// New builds a catalog over the given providers and loads any persisted
// per-provider lists. Missing or corrupt persisted entries degrade to an
// absent catalog entry; New never fails.
func New(ctx context.Context, store kv.Store, providers map[string]models.AIProvider) *Catalog {
	c := &Catalog{
		store:     store,
		providers: providers,
		lists:     make(map[string][]string),
	}

	for name := range providers {
		raw, found, err := store.Load(ctx, kv.CatalogKey(name))
		if err != nil || !found {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			slog.Warn("corrupt catalog entry, ignoring", "provider", name, "error", err)
			continue
		}
		c.lists[name] = list
	}
	return c
}

// Providers returns the configured provider names, sorted.
func (c *Catalog) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns a copy of the cached list for a provider, or nil when no
// successful refresh has happened yet.
func (c *Catalog) Models(provider string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.lists[provider]
	if !ok {
		return nil
	}
	cp := make([]string, len(list))
	copy(cp, list)
	return cp
}

// Refresh fetches a fresh list for one provider and replaces the cached
// entry wholesale. On any failure the previous entry is kept untouched and
// the error is returned for the caller to log; nothing is surfaced to users.
func (c *Catalog) Refresh(ctx context.Context, provider string) error {
	p, ok := c.providers[provider]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNoCredential, provider)
	}

	list, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing models for %s: %w", provider, err)
	}

	c.mu.Lock()
	c.lists[provider] = list
	c.mu.Unlock()

	raw, err := json.Marshal(list)
	if err != nil {
		slog.Warn("marshaling catalog entry", "provider", provider, "error", err)
		return nil
	}
	if err := c.store.Save(ctx, kv.CatalogKey(provider), raw); err != nil {
		// The in-memory entry is already updated; a lost write only costs
		// one refresh after the next restart.
		slog.Warn("persisting catalog entry", "provider", provider, "error", err)
	}
	return nil
}

// RefreshAll refreshes every configured provider. Failures are logged and
// swallowed: the resolver falls back to static defaults until the next
// opportunity.
func (c *Catalog) RefreshAll(ctx context.Context) {
	for _, name := range c.Providers() {
		if err := c.Refresh(ctx, name); err != nil {
			slog.Warn("catalog refresh failed", "provider", name, "error", err)
			continue
		}
		slog.Info("catalog refreshed", "provider", name, "models", len(c.Models(name)))
	}
}
