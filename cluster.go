package xandra

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexhide/xandra/internal/cassandra"
	"github.com/lexhide/xandra/internal/protocol"
)

// Credentials is the capability interface an authentication mechanism
// plugin implements: produce the initial AUTH_RESPONSE token, then
// respond to each AUTH_CHALLENGE until the server replies AUTH_SUCCESS
// or ERROR. Only the challenge/response exchange is specified here; the
// mechanism itself (e.g. PasswordAuthenticator) is an external
// collaborator.
type Credentials = cassandra.Credentials

// Connection is the handle an AfterConnectFunc hook receives once a
// connection reaches the ready state.
type Connection = cassandra.Connection

// AfterConnectFunc runs once, synchronously, each time a data or
// control connection finishes its handshake.
type AfterConnectFunc = cassandra.AfterConnectFunc

// ClusterOption configures Connect, following the teacher's functional-
// option pattern (DatabaseOption in the storage-engine lineage this
// driver is adapted from).
type ClusterOption func(*clusterOptions)

type clusterOptions struct {
	conn         *ConnectionConfig
	credentials  Credentials
	afterConnect AfterConnectFunc
	logger       *zap.Logger
}

// WithConnectionString parses s with ParseConnectionString and applies
// every field it yields. Later options still override individual fields.
func WithConnectionString(s string) ClusterOption {
	return func(o *clusterOptions) {
		cfg, err := ParseConnectionString(s)
		if err != nil {
			o.conn.parseErr = err
			return
		}
		o.conn.Nodes = cfg.Nodes
		o.conn.LoadBalancing = cfg.LoadBalancing
		o.conn.PoolSize = cfg.PoolSize
		o.conn.IdleInterval = cfg.IdleInterval
		o.conn.ConnectTimeout = cfg.ConnectTimeout
		o.conn.Compressor = cfg.Compressor
	}
}

// WithNodes overrides the configured node list directly, bypassing
// ParseConnectionString. Each entry is "host:port"; an entry with no
// port is given the default 9042.
func WithNodes(nodes ...string) ClusterOption {
	return func(o *clusterOptions) {
		parsed, err := splitNodes(joinNodes(nodes))
		if err != nil {
			o.conn.parseErr = err
			return
		}
		o.conn.Nodes = parsed
	}
}

func joinNodes(nodes []string) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

// WithPoolSize sets the number of data connections per node.
func WithPoolSize(n int) ClusterOption {
	return func(o *clusterOptions) { o.conn.PoolSize = n }
}

// WithLoadBalancing selects the load-balancing policy by name, from the
// closed set {random, priority}.
func WithLoadBalancing(name string) ClusterOption {
	return func(o *clusterOptions) {
		if _, err := cassandra.ParsePolicy(name); err != nil {
			o.conn.parseErr = err
			return
		}
		o.conn.LoadBalancing = name
	}
}

// WithCompressor negotiates c during STARTUP when the server advertises
// a matching algorithm in SUPPORTED.
func WithCompressor(c protocol.Compressor) ClusterOption {
	return func(o *clusterOptions) { o.conn.Compressor = c }
}

// WithAuthentication registers the credentials provider used to answer
// an AUTHENTICATE/AUTH_CHALLENGE exchange during handshake.
func WithAuthentication(creds Credentials) ClusterOption {
	return func(o *clusterOptions) { o.credentials = creds }
}

// WithAfterConnect registers a callback run once each connection (data
// or control) reaches the ready state.
func WithAfterConnect(fn AfterConnectFunc) ClusterOption {
	return func(o *clusterOptions) { o.afterConnect = fn }
}

// WithLogger sets the *zap.Logger every connection, pool, and the
// cluster itself log through. Defaults to defaultLogger, built at the
// level named by XANDRA_LOG_LEVEL (info if unset), the way
// cmd/minisql/main.go builds its default logger.
func WithLogger(l *zap.Logger) ClusterOption {
	return func(o *clusterOptions) { o.logger = l }
}

// defaultLoggerConfig is the production zap.Config every component logs
// through unless WithLogger overrides it: ISO8601 timestamps, a
// "severity" level key matching Cassandra's own log field naming, and
// an InitialFields tag identifying this driver in output shared with a
// caller's other loggers. Every connection then adds its own
// zap.String("addr", ...)/zap.String("node", ...) via .With (see
// internal/cassandra/connection.go, pool.go).
func defaultLoggerConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	logConf.InitialFields = map[string]any{"driver": "xandra"}
	return logConf
}

// parseLogLevel parses the textual level names defaultLogger accepts via
// XANDRA_LOG_LEVEL, falling back to an integer zapcore.Level for anyone
// piping through a raw level number.
func parseLogLevel(l string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		n, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, err
		}
		return zapcore.Level(n), nil
	}
}

// defaultLogger builds the logger Connect uses when WithLogger was not
// given, at the level named by XANDRA_LOG_LEVEL (info if unset).
func defaultLogger() (*zap.Logger, error) {
	logConf := defaultLoggerConfig()

	levelName := os.Getenv("XANDRA_LOG_LEVEL")
	if levelName == "" {
		levelName = "info"
	}
	level, err := parseLogLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse XANDRA_LOG_LEVEL: %w", err)
	}
	logConf.Level = zap.NewAtomicLevelAt(level)

	return logConf.Build()
}

// Connect establishes a Session against the configured cluster: one
// control connection and one data pool per configured node. It returns
// an error only when not a single configured node could be reached;
// unreachable nodes otherwise stay down until their control connection
// reports a STATUS_CHANGE UP event.
func Connect(ctx context.Context, opts ...ClusterOption) (*Session, error) {
	o := &clusterOptions{conn: DefaultConnectionConfig()}
	for _, opt := range opts {
		opt(o)
	}
	if o.conn.parseErr != nil {
		return nil, o.conn.parseErr
	}

	policy, err := cassandra.ParsePolicy(o.conn.LoadBalancing)
	if err != nil {
		return nil, err
	}

	var compressors []protocol.Compressor
	if o.conn.Compressor != nil {
		compressors = []protocol.Compressor{o.conn.Compressor}
	}

	logger := o.logger
	if logger == nil {
		logger, err = defaultLogger()
		if err != nil {
			return nil, err
		}
	}

	clusterCfg := cassandra.ClusterConfig{
		Nodes:    o.conn.Nodes,
		PoolSize: o.conn.PoolSize,
		Policy:   policy,
		ConnConfig: cassandra.ConnConfig{
			ConnectTimeout: o.conn.ConnectTimeout,
			Compressors:    compressors,
			Credentials:    o.credentials,
			AfterConnect:   o.afterConnect,
			Logger:         logger,
		},
	}

	cl, err := cassandra.NewCluster(ctx, clusterCfg)
	if err != nil {
		return nil, err
	}
	return &Session{cluster: cl, logger: logger}, nil
}
