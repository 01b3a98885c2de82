// Package dbregistry holds the set of registered databases and their
// immutable descriptors.
package dbregistry

import (
	"fmt"
	"sync"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/errs"
)

// Dialect is a small tagged variant in place of a class hierarchy: a
// capability set keyed by one of two known tags.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Descriptor is an immutable-once-registered database descriptor.
type Descriptor struct {
	Name              string
	Dialect           Dialect
	URI               string
	PoolMin           int
	PoolMax           int
	StatementTimeoutS int
	RowCap            int
}

// Registry is the process-wide set of registered databases. It never
// mutates a Descriptor after Register returns; callers receive copies.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]Descriptor
	order  []string
}

func New() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// FromConfig builds a Registry from the loaded configuration, applying
// per-database defaults where the config omits them.
func FromConfig(cfg *config.Config) (*Registry, error) {
	r := New()
	for _, dc := range cfg.Databases {
		d := Descriptor{
			Name:              dc.Name,
			Dialect:           Dialect(dc.Dialect),
			URI:               dc.URI,
			PoolMin:           dc.PoolMin,
			PoolMax:           dc.PoolMax,
			StatementTimeoutS: dc.StatementTimeoutS,
			RowCap:            dc.RowCap,
		}
		if d.PoolMin == 0 {
			d.PoolMin = config.DefaultPoolMin
		}
		if d.PoolMax == 0 {
			d.PoolMax = config.DefaultPoolMax
		}
		if d.StatementTimeoutS == 0 {
			d.StatementTimeoutS = int(config.DefaultStatementTimeout.Seconds())
		}
		if d.RowCap == 0 {
			d.RowCap = cfg.Security.MaxRows
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a new descriptor. Re-registering the same name is
// rejected: descriptors are immutable once registered.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return errs.New(errs.KindConfigError, "database name must not be empty")
	}
	if d.Dialect != DialectPostgres && d.Dialect != DialectMySQL {
		return errs.New(errs.KindConfigError, fmt.Sprintf("unsupported dialect %q for database %q", d.Dialect, d.Name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[d.Name]; exists {
		return errs.New(errs.KindConfigError, fmt.Sprintf("database %q already registered", d.Name))
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Resolve auto-selects a database when the caller doesn't name one: an
// explicit name is used verbatim; an empty name resolves only when
// exactly one database is registered.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name != "" {
		d, ok := r.byName[name]
		if !ok {
			return Descriptor{}, errs.New(errs.KindUnknownDB, fmt.Sprintf("database %q is not registered", name))
		}
		return d, nil
	}
	if len(r.order) == 1 {
		return r.byName[r.order[0]], nil
	}
	return Descriptor{}, errs.New(errs.KindUnknownDB, "database_name is required when more than one database is registered")
}

// List returns all registered databases in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}
