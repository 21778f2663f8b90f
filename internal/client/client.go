// Package client is the connector facade the engine talks to. It opens a
// connection per operation through a storage factory, delegates to the
// catalog, mapping, ddl and query packages, and records one step metric per
// call.
package client

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"chbridge/internal/config"
	"chbridge/internal/ddl"
	"chbridge/internal/mapping"
	"chbridge/internal/metrics"
	"chbridge/internal/storage"
)

// Opener returns a fresh connection. The caller closes it.
type Opener func(ctx context.Context) (storage.Conn, error)

// Client is safe for concurrent use; it holds no connection between calls.
type Client struct {
	catalog string
	open    Opener
	session mapping.Session
	bridge  *mapping.Bridge
	ddl     ddl.Builder

	engine      string
	batchSize   int
	parallelism int
}

// Option tweaks a Client at construction.
type Option func(*Client)

// WithBuilder overrides the ClickHouse DDL builder.
func WithBuilder(b ddl.Builder) Option { return func(c *Client) { c.ddl = b } }

// WithEngine sets the table engine used by CreateTable. Default "MergeTree".
func WithEngine(engine string) Option { return func(c *Client) { c.engine = engine } }

// WithBatchSize sets rows per INSERT on the write path. Default 1000.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithParallelism bounds concurrent connections in DescribeSchema. Default 4.
func WithParallelism(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithBaseMapper replaces the baseline type table behind the bridge.
func WithBaseMapper(m mapping.BaseMapper) Option {
	return func(c *Client) { c.bridge = mapping.NewBridge(m) }
}

// New builds a Client for catalog.
func New(catalog string, open Opener, s mapping.Session, opts ...Option) *Client {
	c := &Client{
		catalog:     catalog,
		open:        open,
		session:     s,
		bridge:      mapping.NewBridge(nil),
		ddl:         ddl.Default,
		engine:      "MergeTree",
		batchSize:   1000,
		parallelism: 4,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig builds a Client whose connections come from the registered
// storage backend named by cfg.
func FromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	s, err := cfg.Session()
	if err != nil {
		return nil, err
	}
	sc := cfg.Storage()
	open := func(ctx context.Context) (storage.Conn, error) {
		return storage.New(ctx, sc)
	}
	return New(cfg.Catalog, open, s, opts...), nil
}

// Catalog returns the catalog name used in logs and metrics.
func (c *Client) Catalog() string { return c.catalog }

// Session returns the mapping session every translation uses.
func (c *Client) Session() mapping.Session { return c.session }

// step records one operation outcome. Use it deferred with a named error.
func (c *Client) step(op string, start time.Time, err error) {
	d := time.Since(start)
	metrics.RecordStep(c.catalog, op, err, d)
	if err != nil {
		log.Printf("client: op=%s catalog=%s took=%s err=%v", op, c.catalog, d.Truncate(time.Millisecond), err)
	}
}

// withConn opens a connection, runs fn and closes it.
func (c *Client) withConn(ctx context.Context, fn func(storage.Conn) error) error {
	if c.open == nil {
		return fmt.Errorf("client: no connection factory configured")
	}
	conn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("client: close catalog=%s err=%v", c.catalog, cerr)
		}
	}()
	return fn(conn)
}

// exec runs one DDL statement and logs it.
func (c *Client) exec(ctx context.Context, conn storage.Conn, sql string) error {
	log.Printf("client: exec catalog=%s sql=%q", c.catalog, oneLine(sql))
	return conn.Exec(ctx, sql)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
