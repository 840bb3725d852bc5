package cassandra

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/lexhide/xandra/internal/protocol"
	"github.com/lexhide/xandra/pkg/lrucache"
)

// DefaultMaxCachedStatements bounds how many prepared entries a cluster
// keeps resident.
const DefaultMaxCachedStatements = 1000

// PreparedEntry is what the prepared cache stores per statement text:
// the server-issued id plus the bind/result metadata needed to build
// EXECUTE bodies and decode RESULT bodies without a further round trip.
type PreparedEntry struct {
	ID            []byte
	BoundColumns  []protocol.ColumnSpec
	ResultColumns []protocol.ColumnSpec
}

// PreparedCache maps statement text to PreparedEntry, shared process-wide
// across all connections of a single cluster. It enforces a single-flight
// PREPARE contract: at most one concurrent server PREPARE per statement
// text; simultaneous misses all await the one flight's outcome.
type PreparedCache struct {
	entries *lrucache.Cache[PreparedEntry]
	flight  singleflight.Group
}

func NewPreparedCache(maxSize int) *PreparedCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxCachedStatements
	}
	return &PreparedCache{entries: lrucache.New[PreparedEntry](maxSize)}
}

// Lookup returns the cached entry for text, or ok=false on a miss.
func (c *PreparedCache) Lookup(text string) (PreparedEntry, bool) {
	return c.entries.Get(text)
}

// Insert stores or replaces the entry for text.
func (c *PreparedCache) Insert(text string, entry PreparedEntry) {
	c.entries.Put(text, entry)
}

// Invalidate removes the entry for text, if present.
func (c *PreparedCache) Invalidate(text string) {
	c.entries.Delete(text)
}

// InvalidateKeyspace removes every entry whose bound or result column
// metadata references keyspace. Deliberately conservative: on
// SCHEMA_CHANGE the driver does not know which statements the change
// actually affects, so it drops anything that could be.
func (c *PreparedCache) InvalidateKeyspace(keyspace string) {
	var toDelete []string
	c.entries.Each(func(key string, entry PreparedEntry) {
		if columnsReferenceKeyspace(entry.BoundColumns, keyspace) || columnsReferenceKeyspace(entry.ResultColumns, keyspace) {
			toDelete = append(toDelete, key)
		}
	})
	for _, key := range toDelete {
		c.entries.Delete(key)
	}
}

func columnsReferenceKeyspace(cols []protocol.ColumnSpec, keyspace string) bool {
	for _, col := range cols {
		if col.Keyspace == keyspace {
			return true
		}
	}
	return false
}

// PrepareFunc issues an actual PREPARE request against a connection and
// returns the resulting entry. GetOrPrepare calls it at most once per
// concurrent set of callers sharing the same statement text.
type PrepareFunc func(ctx context.Context, text string) (PreparedEntry, error)

// GetOrPrepare returns the cached entry for text, or - on a miss -
// single-flights a call to prepare and caches its result. Concurrent
// callers that miss at the same time all observe exactly one call to
// prepare.
func (c *PreparedCache) GetOrPrepare(ctx context.Context, text string, prepare PrepareFunc) (PreparedEntry, error) {
	if entry, ok := c.Lookup(text); ok {
		return entry, nil
	}

	v, err, _ := c.flight.Do(text, func() (any, error) {
		if entry, ok := c.Lookup(text); ok {
			return entry, nil
		}
		entry, err := prepare(ctx, text)
		if err != nil {
			return PreparedEntry{}, err
		}
		c.Insert(text, entry)
		return entry, nil
	})
	if err != nil {
		return PreparedEntry{}, err
	}
	return v.(PreparedEntry), nil
}

// Reprepare single-flights a re-PREPARE triggered by an `unprepared`
// response and atomically replaces the existing entry.
func (c *PreparedCache) Reprepare(ctx context.Context, text string, prepare PrepareFunc) (PreparedEntry, error) {
	v, err, _ := c.flight.Do("reprepare:"+text, func() (any, error) {
		entry, err := prepare(ctx, text)
		if err != nil {
			return PreparedEntry{}, err
		}
		c.Insert(text, entry)
		return entry, nil
	})
	if err != nil {
		return PreparedEntry{}, err
	}
	return v.(PreparedEntry), nil
}
