// Package catalog provides the read-only lookups the lifecycle services consume:
// the status table, the spare catalog and the technician directory.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spareflow/internal/core/apperror"
)

// Status is one row of the closed status table.
type Status struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// StatusRepository loads the status table.
type StatusRepository interface {
	ListStatuses(ctx context.Context) ([]Status, error)
}

// StatusCatalog resolves status names to ids and back. The table is loaded
// on first use and kept in memory; it is closed and changes only by migration.
type StatusCatalog struct {
	repo StatusRepository

	mu     sync.RWMutex
	loaded bool
	byName map[string]int
	byID   map[int]string
}

// NewStatusCatalog creates a status catalog.
func NewStatusCatalog(repo StatusRepository) *StatusCatalog {
	return &StatusCatalog{repo: repo}
}

// ID returns the identifier of a status name.
// Unknown names are a validation error: they only ever come from callers.
func (c *StatusCatalog) ID(ctx context.Context, name string) (int, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	statusID, ok := c.byName[name]
	if !ok {
		return 0, apperror.NewValidation(fmt.Sprintf("unknown status %q", name)).
			WithDetail("status", name)
	}
	return statusID, nil
}

// IDs resolves several names at once.
func (c *StatusCatalog) IDs(ctx context.Context, names ...string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		statusID, err := c.ID(ctx, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, statusID)
	}
	return ids, nil
}

// Name returns the name of a status identifier.
func (c *StatusCatalog) Name(ctx context.Context, statusID int) (string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	name, ok := c.byID[statusID]
	if !ok {
		return "", apperror.NewNotFound("status", statusID)
	}
	return name, nil
}

// All returns every status ordered by id.
func (c *StatusCatalog) All(ctx context.Context) ([]Status, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Status, 0, len(c.byID))
	for statusID, name := range c.byID {
		out = append(out, Status{ID: statusID, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *StatusCatalog) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	// c.mu is not held across the repository call; a transaction holding the
	// store lock may itself be waiting on c.mu.
	statuses, err := c.repo.ListStatuses(ctx)
	if err != nil {
		return apperror.NewPersistence(fmt.Errorf("load status catalog: %w", err))
	}

	byName := make(map[string]int, len(statuses))
	byID := make(map[int]string, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s.ID
		byID[s.ID] = s.Name
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.byName, c.byID = byName, byID
		c.loaded = true
	}
	return nil
}

// Load fills the catalog up front so request handling never pays for it.
func (c *StatusCatalog) Load(ctx context.Context) error {
	return c.ensureLoaded(ctx)
}
