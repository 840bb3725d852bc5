package cassandra

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lexhide/xandra/internal/protocol"
)

// ClusterConfig configures the whole multi-node cluster:
// the node list, the pool size per node, and the connection
// configuration shared by every pool and control connection.
type ClusterConfig struct {
	Nodes      []string
	PoolSize   int
	Policy     Policy
	ConnConfig ConnConfig
}

func (c ClusterConfig) withDefaults() ClusterConfig {
	if c.PoolSize <= 0 {
		c.PoolSize = 1
	}
	if c.Policy == nil {
		c.Policy = RandomPolicy{}
	}
	return c
}

// node is the cluster's bookkeeping for one configured address: its
// pool (nil until activated), its control connection, and its
// configured position.
type node struct {
	address string
	pool    *Pool
	control *ControlConnection
}

// Cluster is the single actor that serializes node-state transitions:
// pool start/stop in response to control-connection events, and
// checkout for the request hot path. Structurally it is a
// mutex-protected map plus a logger, the same shape as a connection-
// tracking TCP server generalized from "accepted sockets" to "nodes of
// a remote cluster".
type Cluster struct {
	cfg    ClusterConfig
	logger *zap.Logger

	mu    sync.Mutex
	order []string // configured node order, for PriorityPolicy
	nodes map[string]*node

	cache *PreparedCache
}

// NewCluster starts a control connection for every configured node;
// each one that reaches READY/registered activates its node's data
// pool. A node whose control connection cannot be established at start
// is simply left down rather than failing the whole call - nothing
// short of a live control connection can report it back UP later, but
// a cluster with zero reachable nodes at start is not actionable, so
// that case alone returns an error.
func NewCluster(ctx context.Context, cfg ClusterConfig) (*Cluster, error) {
	cfg = cfg.withDefaults()

	cl := &Cluster{
		cfg:    cfg,
		logger: cfg.ConnConfig.withDefaults().Logger,
		nodes:  make(map[string]*node),
		cache:  NewPreparedCache(DefaultMaxCachedStatements),
	}

	var lastErr error
	activated := 0
	for _, addr := range cfg.Nodes {
		if _, dup := cl.nodes[addr]; dup {
			cl.logger.Warn("duplicate node address in configuration, ignoring", zap.String("address", addr))
			continue
		}
		cl.order = append(cl.order, addr)
		cl.nodes[addr] = &node{address: addr}

		if err := cl.startNode(ctx, addr); err != nil {
			cl.logger.Warn("node unreachable at cluster start", zap.String("address", addr), zap.Error(err))
			lastErr = err
			continue
		}
		activated++
	}

	if activated == 0 && len(cfg.Nodes) > 0 {
		return nil, lastErr
	}
	return cl, nil
}

// startNode dials a control connection for addr and, on success,
// activates its data pool.
func (cl *Cluster) startNode(ctx context.Context, addr string) error {
	cc, err := StartControlConnection(ctx, addr, cl.cfg.ConnConfig, func(ev *protocol.Event) {
		cl.handleEvent(addr, ev)
	})
	if err != nil {
		return err
	}

	pool, err := StartPool(ctx, addr, cl.cfg.PoolSize, cl.cfg.ConnConfig, cl.cache)
	if err != nil {
		cc.Close()
		return err
	}

	cl.mu.Lock()
	n := cl.nodes[addr]
	n.control = cc
	n.pool = pool
	cl.mu.Unlock()
	return nil
}

// handleEvent runs on the reporting control connection's read-loop
// goroutine, so it only ever mutates cluster
// state under cl.mu and never blocks on I/O itself.
func (cl *Cluster) handleEvent(sourceAddr string, ev *protocol.Event) {
	switch ev.Type {
	case "STATUS_CHANGE":
		switch ev.ChangeEffect {
		case "UP":
			cl.activateAsync(ev.Address)
		case "DOWN":
			cl.deactivate(ev.Address)
		}
	case "SCHEMA_CHANGE":
		if ev.SchemaChange != nil {
			cl.cache.InvalidateKeyspace(ev.SchemaChange.Keyspace)
		}
	case "TOPOLOGY_CHANGE":
		cl.logger.Debug("topology change observed", zap.String("effect", ev.ChangeEffect), zap.String("address", ev.Address))
	}
}

// activateAsync restarts the pool for address if it is not already
// running. It is named -Async because a UP event must never block the
// reporting connection's read loop on a fresh dial; the restart runs on
// its own goroutine.
func (cl *Cluster) activateAsync(address string) {
	cl.mu.Lock()
	n, known := cl.nodes[address]
	alreadyUp := known && n.pool != nil && n.pool.IsUp()
	cl.mu.Unlock()
	if !known || alreadyUp {
		return
	}

	go func() {
		pool, err := StartPool(context.Background(), address, cl.cfg.PoolSize, cl.cfg.ConnConfig, cl.cache)
		if err != nil {
			cl.logger.Warn("failed to restart pool after UP event", zap.String("address", address), zap.Error(err))
			return
		}
		cl.mu.Lock()
		if n, ok := cl.nodes[address]; ok {
			n.pool = pool
		}
		cl.mu.Unlock()
	}()
}

// deactivate terminates and removes the pool for address.
func (cl *Cluster) deactivate(address string) {
	cl.mu.Lock()
	n, ok := cl.nodes[address]
	var pool *Pool
	if ok {
		pool = n.pool
		n.pool = nil
	}
	cl.mu.Unlock()
	if pool != nil {
		pool.Stop()
	}
}

// Checkout picks a pool to serve the next request according to the
// configured policy. It fails with ConnectionError when no
// pool is up.
func (cl *Cluster) Checkout() (*Pool, error) {
	cl.mu.Lock()
	up := make([]*Pool, 0, len(cl.order))
	for _, addr := range cl.order {
		n := cl.nodes[addr]
		if n != nil && n.pool != nil && n.pool.IsUp() {
			up = append(up, n.pool)
		}
	}
	cl.mu.Unlock()

	pool := cl.cfg.Policy.Pick(up)
	if pool == nil {
		return nil, &connectionError{Reason: "{cluster, not_connected}"}
	}
	return pool, nil
}

// PreparedCache is the single cache shared by every pool in the cluster.
func (cl *Cluster) PreparedCache() *PreparedCache { return cl.cache }

// Close tears down every node's control connection and data pool.
func (cl *Cluster) Close() error {
	cl.mu.Lock()
	nodes := cl.nodes
	cl.nodes = make(map[string]*node)
	cl.mu.Unlock()

	for _, n := range nodes {
		if n.control != nil {
			n.control.Close()
		}
		if n.pool != nil {
			n.pool.Stop()
		}
	}
	return nil
}
