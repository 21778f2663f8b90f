package client

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"chbridge/internal/ddl"
	"chbridge/internal/mapping"
	"chbridge/internal/metrics"
	"chbridge/internal/storage"
)

// Insert is an in-progress write. Rows are staged into Temp, a copy of
// Target's layout, and moved over in one statement by FinishInsert.
type Insert struct {
	Target  ddl.QualifiedName
	Temp    ddl.QualifiedName
	Columns []string

	write  []mapping.WriteFunc
	staged atomic.Int64
}

// Staged returns the rows loaded so far.
func (ins *Insert) Staged() int64 { return ins.staged.Load() }

// BeginInsert resolves write functions for cols and creates the staging
// table LIKE target.
func (c *Client) BeginInsert(ctx context.Context, target ddl.QualifiedName, cols []NewColumn) (ins *Insert, err error) {
	defer func(start time.Time) { c.step("begin_insert", start, err) }(time.Now())

	if len(cols) == 0 {
		return nil, fmt.Errorf("client: BeginInsert: at least one column is required")
	}
	ins = &Insert{
		Target:  target,
		Temp:    target,
		Columns: make([]string, len(cols)),
		write:   make([]mapping.WriteFunc, len(cols)),
	}
	ins.Temp.Table = ddl.TemporaryTableName()
	for i, col := range cols {
		wm, err := c.ToWriteMapping(col.Type)
		if err != nil {
			return nil, fmt.Errorf("client: column %s: %w", col.Name, err)
		}
		ins.Columns[i] = col.Name
		ins.write[i] = wm.Write
	}

	err = c.withConn(ctx, func(conn storage.Conn) error {
		return c.copyTableSchema(ctx, conn, target, ins.Temp.Table)
	})
	if err != nil {
		return nil, err
	}
	return ins, nil
}

// Load drains engine-side rows from in into the staging table. Each value
// goes through its column's write function first.
func (c *Client) Load(ctx context.Context, ins *Insert, in <-chan []any) (n int64, err error) {
	defer func(start time.Time) { c.step("load", start, err) }(time.Now())

	err = c.withConn(ctx, func(conn storage.Conn) error {
		insert := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
			wire := make([][]any, len(rows))
			for i, row := range rows {
				out := make([]any, len(row))
				for j, v := range row {
					w, err := ins.write[j](v)
					if err != nil {
						return 0, fmt.Errorf("client: column %s: %w", columns[j], err)
					}
					out[j] = w
				}
				wire[i] = out
			}
			return conn.Insert(ctx, ins.Temp, columns, wire)
		}
		n, err = storage.LoadBatches(ctx, ins.Columns, in, c.batchSize, insert)
		return err
	})
	ins.staged.Add(n)
	metrics.RecordRows(c.catalog, "staged", n)
	return n, err
}

// FinishInsert moves the staged rows into the target and drops the staging
// table.
func (c *Client) FinishInsert(ctx context.Context, ins *Insert) (err error) {
	defer func(start time.Time) { c.step("finish_insert", start, err) }(time.Now())

	err = c.withConn(ctx, func(conn storage.Conn) error {
		if err := c.exec(ctx, conn, c.ddl.InsertFromSelect(ins.Target, ins.Temp, ins.Columns)); err != nil {
			return err
		}
		return c.exec(ctx, conn, c.ddl.DropTable(ins.Temp))
	})
	if err == nil {
		metrics.RecordRows(c.catalog, "committed", ins.Staged())
		log.Printf("client: insert committed catalog=%s table=%s rows=%d", c.catalog, ins.Target.Table, ins.Staged())
	}
	return err
}

// AbortInsert drops the staging table without touching the target.
func (c *Client) AbortInsert(ctx context.Context, ins *Insert) (err error) {
	defer func(start time.Time) { c.step("abort_insert", start, err) }(time.Now())

	return c.withConn(ctx, func(conn storage.Conn) error {
		return c.exec(ctx, conn, c.ddl.DropTable(ins.Temp))
	})
}
