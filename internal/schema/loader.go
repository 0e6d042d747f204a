package schema

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ColumnInfo is the backend-neutral shape of one introspected column.
type ColumnInfo struct {
	Name string
	Type string
}

// ColumnSource is the slice of the storage collaborator the loader needs.
type ColumnSource interface {
	TableColumns(ctx context.Context, table string) ([]ColumnInfo, error)
}

// Loader builds descriptors from live store introspection merged with the
// curated glosses, caching the result per table. Concurrent builds for the
// same table share a single introspection call via singleflight. A failed
// introspection falls back to the curated static descriptor so the pipeline
// stays usable when the store is briefly unreachable at startup.
type Loader struct {
	source ColumnSource

	mu     sync.RWMutex
	cached map[string]*Descriptor
	sf     singleflight.Group
}

func NewLoader(source ColumnSource) *Loader {
	return &Loader{
		source: source,
		cached: make(map[string]*Descriptor),
	}
}

func (l *Loader) Descriptor(ctx context.Context, table string) (*Descriptor, error) {
	l.mu.RLock()
	d, ok := l.cached[table]
	l.mu.RUnlock()
	if ok {
		return d, nil
	}

	v, err, _ := l.sf.Do(table, func() (interface{}, error) {
		l.mu.RLock()
		d, ok := l.cached[table]
		l.mu.RUnlock()
		if ok {
			return d, nil
		}
		d = l.build(ctx, table)
		l.mu.Lock()
		l.cached[table] = d
		l.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// Invalidate drops the cached descriptor, forcing a rebuild on next use.
// Called when the storage collaborator signals a schema-version change.
func (l *Loader) Invalidate(table string) {
	l.mu.Lock()
	delete(l.cached, table)
	l.mu.Unlock()
}

func (l *Loader) build(ctx context.Context, table string) *Descriptor {
	if l.source == nil {
		return DefaultDescriptor(table)
	}
	infos, err := l.source.TableColumns(ctx, table)
	if err != nil || len(infos) == 0 {
		log.Warn().Err(err).Str("table", table).
			Msg("store introspection unavailable, using curated descriptor")
		return DefaultDescriptor(table)
	}
	columns := make([]Column, len(infos))
	for i, info := range infos {
		columns[i] = Column{Name: info.Name, Type: info.Type, Gloss: glossFor(info.Name)}
	}
	return New(table, columns)
}
