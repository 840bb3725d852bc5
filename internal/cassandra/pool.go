package cassandra

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Pool is the set of data connections a cluster maintains to one up
// node. All connections in a pool share the cluster's prepared cache.
type Pool struct {
	address string
	cfg     ConnConfig
	cache   *PreparedCache
	logger  *zap.Logger

	mu    sync.Mutex
	conns []*Connection
	next  uint64 // round-robin cursor, read under atomic
	up    bool
}

// StartPool dials size connections to address and returns a Pool in the
// up state. A failure to dial any one of them fails the whole start -
// the cluster retries via the control connection's event stream rather
// than by active probing, so there is no partial pool. cache is the
// cluster-wide prepared cache every connection in the pool shares.
func StartPool(ctx context.Context, address string, size int, cfg ConnConfig, cache *PreparedCache) (*Pool, error) {
	cfg.Address = address

	p := &Pool{
		address: address,
		cfg:     cfg,
		cache:   cache,
		logger:  cfg.withDefaults().Logger.With(zap.String("node", address)),
	}

	for i := 0; i < size; i++ {
		conn, err := Connect(ctx, cfg, cache, nil)
		if err != nil {
			p.closeAll()
			return nil, err
		}
		p.conns = append(p.conns, conn)
	}
	p.up = true
	return p, nil
}

// Checkout returns the next connection to use, round-robin over the
// pool's connections.
func (p *Pool) Checkout() (*Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.up || len(p.conns) == 0 {
		return nil, &connectionError{Reason: "closed"}
	}
	idx := atomic.AddUint64(&p.next, 1) % uint64(len(p.conns))
	return p.conns[idx], nil
}

// PreparedCache returns the cache shared by every connection in the pool.
func (p *Pool) PreparedCache() *PreparedCache { return p.cache }

// Address is the node address this pool is connected to.
func (p *Pool) Address() string { return p.address }

// IsUp reports whether the pool currently has live connections.
func (p *Pool) IsUp() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.up
}

// Stop closes every connection in the pool.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.up = false
	p.mu.Unlock()
	p.closeAll()
}

func (p *Pool) closeAll() {
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
