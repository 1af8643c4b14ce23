// ABOUTME: Catalog holds the current set of available models as an immutable snapshot
// ABOUTME: Refresh replaces the whole snapshot atomically so readers never see a partial update

package model

import (
	"log/slog"
	"sync/atomic"
)

// snapshot is an immutable view of the catalog. Order is preserved from the
// last Replace call and drives display order.
type snapshot struct {
	ordered []*Model
	byKey   map[string]*Model
}

// Catalog is a read-mostly table of available models. Concurrent readers are
// served from an atomically swapped snapshot; Replace never mutates a
// published snapshot in place.
type Catalog struct {
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
}

// NewCatalog creates a catalog populated with the given models. Pass nil
// logger for default.
func NewCatalog(models []*Model, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{logger: logger.With("component", "catalog")}
	c.Replace(models)
	return c
}

// Replace swaps in a new catalog snapshot. The input slice is copied; callers
// may reuse it afterwards.
func (c *Catalog) Replace(models []*Model) {
	snap := &snapshot{
		ordered: make([]*Model, 0, len(models)),
		byKey:   make(map[string]*Model, len(models)),
	}
	for _, m := range models {
		if m == nil || m.Key == "" {
			continue
		}
		if _, dup := snap.byKey[m.Key]; dup {
			c.logger.Warn("duplicate model key ignored", "key", m.Key)
			continue
		}
		snap.ordered = append(snap.ordered, m)
		snap.byKey[m.Key] = m
	}
	c.current.Store(snap)
	c.logger.Debug("catalog replaced", "models", len(snap.ordered))
}

// Get returns the model for the given key.
func (c *Catalog) Get(key string) (*Model, error) {
	snap := c.current.Load()
	m, ok := snap.byKey[key]
	if !ok {
		return nil, ErrModelNotFound
	}
	return m, nil
}

// ResolveAccessible returns the models selectable under the given entitlement,
// in catalog order.
func (c *Catalog) ResolveAccessible(state PremiumState) []*Model {
	snap := c.current.Load()
	out := make([]*Model, 0, len(snap.ordered))
	for _, m := range snap.ordered {
		if m.Accessible(state) {
			out = append(out, m)
		}
	}
	return out
}

// All returns every catalog entry in order, regardless of entitlement.
func (c *Catalog) All() []*Model {
	snap := c.current.Load()
	out := make([]*Model, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

// CheckAccess returns nil if the model exists and is selectable under the
// given entitlement, ErrModelNotFound or ErrTierRestricted otherwise.
func (c *Catalog) CheckAccess(key string, state PremiumState) error {
	m, err := c.Get(key)
	if err != nil {
		return err
	}
	if !m.Accessible(state) {
		return ErrTierRestricted
	}
	return nil
}
