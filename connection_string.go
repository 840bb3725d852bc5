package xandra

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lexhide/xandra/internal/cassandra"
	"github.com/lexhide/xandra/internal/protocol"
)

// ConnectionConfig holds the parsed configuration surface §6 of the
// specification enumerates: the node list plus the query parameters a
// connection string may carry.
type ConnectionConfig struct {
	Nodes          []string
	LoadBalancing  string
	PoolSize       int
	IdleInterval   time.Duration
	ConnectTimeout time.Duration
	Compressor     protocol.Compressor

	parseErr error
}

// DefaultConnectionConfig returns the defaults §6 specifies: a single
// node at 127.0.0.1:9042, random load balancing, one connection per
// node, a 30s idle interval and a 5s connect timeout.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Nodes:          []string{"127.0.0.1:9042"},
		LoadBalancing:  "random",
		PoolSize:       1,
		IdleInterval:   30 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// ParseConnectionString parses a connection string with optional query
// parameters.
//
// Format: "host1:port1,host2:port2?param1=value1&param2=value2"
//
// Supported parameters:
//   - load_balancing=random|priority (default: random)
//   - pool_size=<int>                (default: 1)
//   - connect_timeout=<ms>           (default: 5000)
//   - idle_interval=<ms>             (default: 30000)
//   - compressor=lz4|snappy          (default: none)
//
// Examples:
//   - "127.0.0.1:9042"
//   - "127.0.0.1:9042?compressor=snappy"
//   - "a.example.com:9042,b.example.com:9042?load_balancing=priority&pool_size=2"
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	parts := strings.SplitN(connStr, "?", 2)

	config := DefaultConnectionConfig()
	if host := strings.TrimSpace(parts[0]); host != "" {
		nodes, err := splitNodes(host)
		if err != nil {
			return nil, err
		}
		config.Nodes = nodes
	}

	if len(parts) == 1 {
		return config, nil
	}

	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("xandra: invalid connection string query parameters: %w", err)
	}

	if lb := queryParams.Get("load_balancing"); lb != "" {
		if _, err := cassandra.ParsePolicy(lb); err != nil {
			return nil, err
		}
		config.LoadBalancing = lb
	}

	if poolSizeStr := queryParams.Get("pool_size"); poolSizeStr != "" {
		poolSize, err := strconv.Atoi(poolSizeStr)
		if err != nil || poolSize < 1 {
			return nil, &InvalidArguments{Msg: fmt.Sprintf("invalid pool_size %q: must be a positive integer", poolSizeStr)}
		}
		config.PoolSize = poolSize
	}

	if connectTimeoutStr := queryParams.Get("connect_timeout"); connectTimeoutStr != "" {
		ms, err := strconv.Atoi(connectTimeoutStr)
		if err != nil || ms < 0 {
			return nil, &InvalidArguments{Msg: fmt.Sprintf("invalid connect_timeout %q: must be a non-negative integer of milliseconds", connectTimeoutStr)}
		}
		config.ConnectTimeout = time.Duration(ms) * time.Millisecond
	}

	if idleIntervalStr := queryParams.Get("idle_interval"); idleIntervalStr != "" {
		ms, err := strconv.Atoi(idleIntervalStr)
		if err != nil || ms < 0 {
			return nil, &InvalidArguments{Msg: fmt.Sprintf("invalid idle_interval %q: must be a non-negative integer of milliseconds", idleIntervalStr)}
		}
		config.IdleInterval = time.Duration(ms) * time.Millisecond
	}

	if compressorStr := queryParams.Get("compressor"); compressorStr != "" {
		compressor, err := parseCompressor(compressorStr)
		if err != nil {
			return nil, err
		}
		config.Compressor = compressor
	}

	return config, nil
}

func splitNodes(hosts string) ([]string, error) {
	var nodes []string
	for _, h := range strings.Split(hosts, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.Contains(h, ":") {
			h = h + ":9042"
		}
		if _, portStr, err := splitHostPort(h); err != nil {
			return nil, err
		} else if _, err := strconv.Atoi(portStr); err != nil {
			return nil, &InvalidArguments{Msg: fmt.Sprintf("invalid port in node address %q", h)}
		}
		nodes = append(nodes, h)
	}
	if len(nodes) == 0 {
		return nil, &InvalidArguments{Msg: "no node addresses given"}
	}
	return nodes, nil
}

func splitHostPort(addr string) (host, port string, err error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", &InvalidArguments{Msg: fmt.Sprintf("node address %q is missing a port", addr)}
	}
	return addr[:idx], addr[idx+1:], nil
}

func parseCompressor(name string) (protocol.Compressor, error) {
	switch name {
	case "lz4":
		return protocol.LZ4Compressor{}, nil
	case "snappy":
		return protocol.SnappyCompressor{}, nil
	default:
		return nil, &InvalidArguments{Msg: "unknown compressor " + name}
	}
}
