// Package query builds the scan SQL handed to the store and decides which
// row-limiting work may be delegated to it.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"chbridge/internal/ddl"
)

// LimitFunc appends a row limit to generated SQL.
type LimitFunc func(sql string, limit int64) string

// IsLimitGuaranteed reports whether the store returns at most the requested
// number of rows once the limit is pushed down. ClickHouse always honors
// LIMIT, so the engine need not re-apply it.
func IsLimitGuaranteed() bool { return true }

// ApplyLimit appends " LIMIT n" to sql. n is used as given.
func ApplyLimit(sql string, limit int64) string {
	return sql + " LIMIT " + strconv.FormatInt(limit, 10)
}

// Limit returns ApplyLimit as a LimitFunc. The store always supports
// pushdown, so it is never nil.
func Limit() LimitFunc { return ApplyLimit }

// SelectSQL renders the plain scan a limit is appended to. No columns
// selects a constant so row counts still work.
//
//	SELECT `a`, `b` FROM `db`.`t`
func SelectSQL(q ddl.Quoter, table ddl.QualifiedName, columns []string) (string, error) {
	if table.Table == "" {
		return "", fmt.Errorf("query: table name must not be empty")
	}
	list := "1"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			if strings.TrimSpace(c) == "" {
				return "", fmt.Errorf("query: column %d has an empty name", i)
			}
			quoted[i] = q.Ident(c)
		}
		list = strings.Join(quoted, ", ")
	}
	return "SELECT " + list + " FROM " + q.Name(table), nil
}
