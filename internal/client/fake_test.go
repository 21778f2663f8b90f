package client

import (
	"context"
	"sort"
	"sync"

	"chbridge/internal/ddl"
	"chbridge/internal/storage"
)

// fakeStore backs every connection a test Client opens. Conns share its
// state, so assertions can look at what all of them did.
type fakeStore struct {
	mu sync.Mutex

	upper   bool
	schemas []string
	tables  []storage.TableInfo
	columns map[string][]storage.ColumnInfo // key "schema.table"
	rows    [][]any

	openErr error
	execErr error

	opens, closes, aborts int
	execs                 []string
	queries               []string
	inserts               map[string][][]any // key table name
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		columns: map[string][]storage.ColumnInfo{},
		inserts: map[string][][]any{},
	}
}

func (f *fakeStore) open(context.Context) (storage.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return &fakeConn{store: f}, nil
}

func (f *fakeStore) snapshot() (execs []string, opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.execs...), f.opens, f.closes
}

type fakeConn struct {
	store *fakeStore
}

var (
	_ storage.Conn     = (*fakeConn)(nil)
	_ storage.Metadata = (*fakeConn)(nil)
)

func (c *fakeConn) Metadata() storage.Metadata { return c }

func (c *fakeConn) Schemas(context.Context) ([]string, error) {
	return c.store.schemas, nil
}

func (c *fakeConn) Tables(_ context.Context, schemaPattern, namePattern string, kinds []string) ([]storage.TableInfo, error) {
	var out []storage.TableInfo
	for _, t := range c.store.tables {
		if storage.MatchLike(schemaPattern, `\`, t.Schema) && storage.MatchLike(namePattern, `\`, t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *fakeConn) Columns(_ context.Context, schema, table string) ([]storage.ColumnInfo, error) {
	return c.store.columns[schema+"."+table], nil
}

func (c *fakeConn) SearchStringEscape() string       { return `\` }
func (c *fakeConn) StoresUpperCaseIdentifiers() bool { return c.store.upper }

func (c *fakeConn) Exec(_ context.Context, sql string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.execErr != nil {
		return storage.Wrap("exec", c.store.execErr)
	}
	c.store.execs = append(c.store.execs, sql)
	return nil
}

func (c *fakeConn) Query(_ context.Context, sql string, fn func([]any) error) error {
	c.store.mu.Lock()
	c.store.queries = append(c.store.queries, sql)
	rows := c.store.rows
	c.store.mu.Unlock()

	for _, r := range rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeConn) Insert(_ context.Context, table ddl.QualifiedName, _ []string, rows [][]any) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.inserts[table.Table] = append(c.store.inserts[table.Table], rows...)
	return int64(len(rows)), nil
}

func (c *fakeConn) Abort(exec storage.Executor) {
	exec.Execute(func() {
		c.store.mu.Lock()
		c.store.aborts++
		c.store.mu.Unlock()
	})
}

func (c *fakeConn) Close() error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.closes++
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
