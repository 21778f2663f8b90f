// Package catalog enumerates what the store exposes to users: schemas with
// internal ones filtered out, and tables by pattern.
package catalog

import (
	"context"
	"strings"

	"chbridge/internal/storage"
)

// systemSchema is ClickHouse's internal database.
const systemSchema = "system"

// ListSchemas returns every schema except "system" (any case) as a set.
// Any metadata failure fails the whole listing.
func ListSchemas(ctx context.Context, md storage.Metadata) (map[string]struct{}, error) {
	names, err := md.Schemas(ctx)
	if err != nil {
		return nil, storage.Wrap("list schemas", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		if strings.EqualFold(n, systemSchema) {
			continue
		}
		out[n] = struct{}{}
	}
	return out, nil
}

// ListTables lists tables and views in schema. An empty schema searches all
// schemas; an empty name lists everything. Both are taken literally:
// LIKE metacharacters are escaped with the store's search string escape.
func ListTables(ctx context.Context, md storage.Metadata, schema, name string) ([]storage.TableInfo, error) {
	esc := md.SearchStringEscape()
	tables, err := md.Tables(ctx,
		EscapeNamePattern(schema, esc),
		EscapeNamePattern(name, esc),
		[]string{storage.KindTable, storage.KindView})
	if err != nil {
		return nil, storage.Wrap("list tables", err)
	}
	return tables, nil
}

// EscapeNamePattern escapes '_' and '%' (and the escape itself) so name
// matches only literally. An empty escape returns name unchanged.
func EscapeNamePattern(name, escape string) string {
	if escape == "" || name == "" {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		s := string(r)
		if s == escape || r == '_' || r == '%' {
			sb.WriteString(escape)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
