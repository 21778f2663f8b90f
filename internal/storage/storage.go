// Package storage holds the store-agnostic connection contracts the bridge
// talks to, and a registry that lets backends plug themselves in by kind.
//
// Backends (currently "clickhouse" and "sqlite") register a Factory from
// their init functions. Callers import internal/storage/all for side effects
// and then open connections through New without naming a backend package.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chbridge/internal/ddl"
	"chbridge/internal/mapping"
)

// ErrMetadataAccess wraps every failure talking to the store: metadata reads,
// DDL and inserts. Nothing wrapped with it is retried.
var ErrMetadataAccess = errors.New("metadata access failure")

// Table kinds reported by Metadata.Tables.
const (
	KindTable = "TABLE"
	KindView  = "VIEW"
)

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string

	User     string
	Password string

	// ConnectTimeout bounds dialing the store.
	ConnectTimeout time.Duration
	// UseInformationSchema selects information_schema queries for metadata
	// instead of SHOW statements.
	UseInformationSchema bool
}

// TableInfo is one row of Metadata.Tables.
type TableInfo struct {
	Schema string
	Name   string
	Kind   string
}

// ColumnInfo is one row of Metadata.Columns.
type ColumnInfo struct {
	Name       string
	Descriptor mapping.Descriptor
}

// Metadata reads the store's catalog.
type Metadata interface {
	// Schemas lists every schema (database) name, including internal ones.
	Schemas(ctx context.Context) ([]string, error)
	// Tables lists tables of the given kinds. Patterns use LIKE syntax; an
	// empty pattern matches everything.
	Tables(ctx context.Context, schemaPattern, namePattern string, kinds []string) ([]TableInfo, error)
	// Columns lists the columns of one table in ordinal order.
	Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error)
	// SearchStringEscape is the escape used for LIKE metacharacters.
	SearchStringEscape() string
	// StoresUpperCaseIdentifiers reports whether unquoted names are folded
	// to upper case.
	StoresUpperCaseIdentifiers() bool
}

// Conn is a single live connection to the store.
type Conn interface {
	Metadata() Metadata
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Query runs a read statement and hands each row to fn as raw driver
	// values. A non-nil error from fn stops the scan and is returned as is.
	Query(ctx context.Context, sql string, fn func(row []any) error) error
	// Insert appends rows to table. Values are already in wire form.
	Insert(ctx context.Context, table ddl.QualifiedName, columns []string, rows [][]any) (int64, error)
	// Abort cancels in-flight work and discards the connection. The work is
	// handed to exec and not awaited.
	Abort(exec Executor)
	Close() error
}

// Factory opens a Conn for cfg.
type Factory func(ctx context.Context, cfg Config) (Conn, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a connection using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Conn, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Wrap tags err as a store failure. A nil err stays nil and an already
// tagged err is returned as is.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrMetadataAccess) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrMetadataAccess, op, err)
}
