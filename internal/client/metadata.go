package client

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chbridge/internal/catalog"
	"chbridge/internal/mapping"
	"chbridge/internal/metrics"
	"chbridge/internal/storage"
	"chbridge/internal/types"
)

// Column is a store column with its engine-side mapping.
type Column struct {
	Name       string
	Descriptor mapping.Descriptor
	Mapping    mapping.ColumnMapping
}

// ListSchemas returns every schema except ClickHouse's "system".
func (c *Client) ListSchemas(ctx context.Context) (schemas map[string]struct{}, err error) {
	defer func(start time.Time) { c.step("list_schemas", start, err) }(time.Now())

	err = c.withConn(ctx, func(conn storage.Conn) error {
		schemas, err = catalog.ListSchemas(ctx, conn.Metadata())
		return err
	})
	return schemas, err
}

// GetTables lists tables and views. Empty schema or table means any; other
// values match literally.
func (c *Client) GetTables(ctx context.Context, schema, table string) (tables []storage.TableInfo, err error) {
	defer func(start time.Time) { c.step("get_tables", start, err) }(time.Now())

	err = c.withConn(ctx, func(conn storage.Conn) error {
		tables, err = catalog.ListTables(ctx, conn.Metadata(), schema, table)
		return err
	})
	return tables, err
}

// DescribeTable maps every column of schema.table. Columns with no mapping
// are logged and left out.
func (c *Client) DescribeTable(ctx context.Context, schema, table string) (cols []Column, err error) {
	defer func(start time.Time) { c.step("describe_table", start, err) }(time.Now())

	err = c.withConn(ctx, func(conn storage.Conn) error {
		cols, err = c.describe(ctx, conn.Metadata(), schema, table)
		return err
	})
	return cols, err
}

func (c *Client) describe(ctx context.Context, md storage.Metadata, schema, table string) ([]Column, error) {
	infos, err := md.Columns(ctx, schema, table)
	if err != nil {
		return nil, storage.Wrap("columns", err)
	}

	out := make([]Column, 0, len(infos))
	for _, ci := range infos {
		m, ok, err := c.bridge.ToCanonical(c.session, ci.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("client: column %s.%s.%s: %w", schema, table, ci.Name, err)
		}
		if !ok {
			log.Printf("client: skip column=%s.%s.%s type=%s reason=unsupported",
				schema, table, ci.Name, ci.Descriptor.TypeName)
			metrics.RecordColumn(c.catalog, metrics.ColumnUnsupported)
			continue
		}
		metrics.RecordColumn(c.catalog, c.columnKind(ci.Descriptor, m))
		out = append(out, Column{Name: ci.Name, Descriptor: ci.Descriptor, Mapping: m})
	}
	return out, nil
}

// DescribeSchema describes every table of schema, a few at a time, each on
// its own connection. The first failure cancels the rest.
func (c *Client) DescribeSchema(ctx context.Context, schema string) (out map[string][]Column, err error) {
	if strings.TrimSpace(schema) == "" {
		return nil, fmt.Errorf("client: DescribeSchema: schema must not be empty")
	}

	tables, err := c.GetTables(ctx, schema, "")
	if err != nil {
		return nil, err
	}
	defer func(start time.Time) { c.step("describe_schema", start, err) }(time.Now())

	var mu sync.Mutex
	out = make(map[string][]Column, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for _, t := range tables {
		t := t
		g.Go(func() error {
			cols, err := c.DescribeTable(gctx, t.Schema, t.Name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[t.Name] = cols
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToCanonical maps one native descriptor. ok=false means unsupported.
func (c *Client) ToCanonical(d mapping.Descriptor) (mapping.ColumnMapping, bool, error) {
	return c.bridge.ToCanonical(c.session, d)
}

// ToWriteMapping picks the native column type for t.
func (c *Client) ToWriteMapping(t types.Type) (mapping.WriteMapping, error) {
	return c.bridge.ToWriteMapping(c.session, t)
}

// columnKind names which bridge rule produced m, for the columns metric.
func (c *Client) columnKind(d mapping.Descriptor, m mapping.ColumnMapping) string {
	for _, name := range c.session.ForcedVarchar {
		if strings.EqualFold(strings.TrimSpace(name), d.TypeName) {
			return metrics.ColumnForcedVarchar
		}
	}
	switch {
	case m.Type == types.JSONType:
		return metrics.ColumnJSON
	case d.Code == mapping.TypeDecimal && c.session.DecimalMapping == mapping.DecimalAllowOverflow &&
		d.ColumnSize > types.MaxDecimalPrecision:
		return metrics.ColumnDecimalOverflow
	}
	return metrics.ColumnMapped
}
