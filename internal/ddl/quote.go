package ddl

import "strings"

// Quoter quotes identifiers for one SQL dialect.
type Quoter struct {
	// Quote wraps each identifier; occurrences inside the name are doubled.
	Quote string
	// Separator joins qualified name parts.
	Separator string
}

// Backtick is the ClickHouse/MySQL identifier style.
var Backtick = Quoter{Quote: "`", Separator: "."}

// Ident quotes a single identifier.
//
//	name     -> `name`
//	we`ird   -> `we``ird`
func (q Quoter) Ident(name string) string {
	return q.Quote + strings.ReplaceAll(name, q.Quote, q.Quote+q.Quote) + q.Quote
}

// Qualified quotes and joins the non-empty parts:
//
//	("", "db", "t") -> `db`.`t`
//	("c", "", "t")  -> `c`.`t`
func (q Quoter) Qualified(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, q.Ident(p))
	}
	return strings.Join(out, q.Separator)
}

// Name renders a QualifiedName.
func (q Quoter) Name(n QualifiedName) string {
	return q.Qualified(n.Catalog, n.Schema, n.Table)
}
