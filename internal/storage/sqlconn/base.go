// Package sqlconn holds the database/sql plumbing shared by backends that
// pin a single *sql.Conn: statement execution, batched multi-row inserts and
// abortable operations.
package sqlconn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"strings"

	"chbridge/internal/ddl"
	"chbridge/internal/storage"
)

// Base implements the execution half of storage.Conn over a pinned
// connection. Backends embed it and add storage.Metadata.
type Base struct {
	// SQL is the pinned connection.
	SQL *sql.Conn
	// Quoter renders identifiers in Insert.
	Quoter ddl.Quoter

	label   string
	closeFn func() error
	aborted context.Context
	abort   context.CancelFunc
}

// New wraps c. label prefixes errors and log lines; closeFn releases what
// the factory opened alongside c (typically the *sql.DB).
func New(label string, c *sql.Conn, q ddl.Quoter, closeFn func() error) *Base {
	aborted, abort := context.WithCancel(context.Background())
	return &Base{
		SQL:     c,
		Quoter:  q,
		label:   label,
		closeFn: closeFn,
		aborted: aborted,
		abort:   abort,
	}
}

// Op derives a context that Abort also cancels. Call the returned func when
// the operation is done.
func (b *Base) Op(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.aborted, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Exec runs a single statement.
func (b *Base) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return fmt.Errorf("%s: Exec: empty SQL", b.label)
	}
	ctx, done := b.Op(ctx)
	defer done()
	if _, err := b.SQL.ExecContext(ctx, sqlText); err != nil {
		return storage.Wrap("exec", err)
	}
	return nil
}

// Insert appends rows with one multi-row INSERT per call.
func (b *Base) Insert(ctx context.Context, table ddl.QualifiedName, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: Insert: columns must not be empty", b.label)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	cols := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = b.Quoter.Ident(col)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", b.Quoter.Name(table), strings.Join(cols, ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("%s: Insert: row %d has %d values, want %d", b.label, i, len(row), len(columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
		args = append(args, row...)
	}

	ctx, done := b.Op(ctx)
	defer done()
	res, err := b.SQL.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, storage.Wrap("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		// Not every protocol reports affected rows for INSERT.
		n = int64(len(rows))
	}
	return n, nil
}

// Query runs sqlText and calls fn once per row. Values arrive as the driver
// produced them; []byte values are copies owned by fn.
func (b *Base) Query(ctx context.Context, sqlText string, fn func(row []any) error) error {
	ctx, done := b.Op(ctx)
	defer done()

	rows, err := b.SQL.QueryContext(ctx, sqlText)
	if err != nil {
		return storage.Wrap("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return storage.Wrap("query", err)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return storage.Wrap("query", err)
		}
		row := make([]any, len(vals))
		copy(row, vals)
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storage.Wrap("query", err)
	}
	return nil
}

// Abort cancels in-flight work and marks the connection bad so the pool
// drops it. exec runs the abort; nothing waits for it.
func (b *Base) Abort(exec storage.Executor) {
	exec.Execute(func() {
		b.abort()
		err := b.SQL.Raw(func(any) error { return driver.ErrBadConn })
		if err != nil && !errors.Is(err, driver.ErrBadConn) {
			log.Printf("%s: abort: %v", b.label, err)
		}
	})
}

// Close releases the connection and whatever closeFn owns.
func (b *Base) Close() error {
	b.abort()
	err := b.SQL.Close()
	if errors.Is(err, sql.ErrConnDone) {
		// Already discarded by Abort.
		err = nil
	}
	if b.closeFn != nil {
		if cerr := b.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

// Strings runs query and returns column col of every row as text. NULLs
// become empty strings.
func (b *Base) Strings(ctx context.Context, col int, query string, args ...any) ([]string, error) {
	rows, err := b.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	err = ScanText(rows, func(vals []string) error {
		if col >= len(vals) {
			return fmt.Errorf("%s: column %d out of range (%d columns)", b.label, col, len(vals))
		}
		out = append(out, vals[col])
		return nil
	})
	return out, err
}

// ScanText scans every row of rows as text and hands it to fn. The caller
// still owns rows.
func ScanText(rows *sql.Rows, fn func(vals []string) error) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	raw := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		vals := make([]string, len(cols))
		for i, v := range raw {
			vals[i] = v.String
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}
