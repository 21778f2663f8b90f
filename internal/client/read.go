package client

import (
	"context"
	"fmt"
	"time"

	"chbridge/internal/ddl"
	"chbridge/internal/metrics"
	"chbridge/internal/query"
	"chbridge/internal/storage"
)

// LimitFunction returns how a row limit is appended to generated SQL.
func (c *Client) LimitFunction() query.LimitFunc { return query.Limit() }

// IsLimitGuaranteed reports whether a pushed-down limit is always honored.
func (c *Client) IsLimitGuaranteed() bool { return query.IsLimitGuaranteed() }

// OpenReadConnection opens a connection for Scan. The caller closes it, or
// hands it to AbortReadConnection to cut a scan short.
func (c *Client) OpenReadConnection(ctx context.Context) (storage.Conn, error) {
	if c.open == nil {
		return nil, fmt.Errorf("client: no connection factory configured")
	}
	return c.open(ctx)
}

// AbortReadConnection cancels whatever conn is running and discards it. The
// abort runs on the calling goroutine.
func (c *Client) AbortReadConnection(conn storage.Conn) {
	metrics.RecordStep(c.catalog, "abort_read", nil, 0)
	conn.Abort(storage.DirectExecutor{})
}

// Scan reads cols of table through conn and hands fn each row converted to
// engine values. A negative limit reads everything.
func (c *Client) Scan(ctx context.Context, conn storage.Conn, table ddl.QualifiedName, cols []Column, limit int64, fn func(row []any) error) (err error) {
	defer func(start time.Time) { c.step("scan", start, err) }(time.Now())

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	sql, err := query.SelectSQL(c.ddl.Quoter, table, names)
	if err != nil {
		return err
	}
	if limit >= 0 {
		sql = c.LimitFunction()(sql, limit)
	}

	return conn.Query(ctx, sql, func(raw []any) error {
		if len(cols) == 0 {
			return fn(nil)
		}
		if len(raw) != len(cols) {
			return fmt.Errorf("client: scan returned %d values, want %d", len(raw), len(cols))
		}
		row := make([]any, len(cols))
		for i, col := range cols {
			v, err := col.Mapping.Read(raw[i])
			if err != nil {
				return fmt.Errorf("client: column %s: %w", col.Name, err)
			}
			row[i] = v
		}
		return fn(row)
	})
}
