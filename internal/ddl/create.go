// Package ddl renders the DDL statements sent to ClickHouse: table creation
// from a column model, CREATE TABLE ... LIKE, column and table renames, and
// drops. All identifiers are quoted with the Builder's Quoter.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement with the default
// Builder.
func BuildCreateTableSQL(t TableDef) (string, error) {
	return Default.CreateTable(t)
}

// CreateTable renders a CREATE TABLE statement from a TableDef.
//
// Each column is rendered as:
//
//	`<Name>` <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// where NOT NULL is added when Nullable == false and Default is raw SQL.
// Columns with PrimaryKey == true are collected into a trailing
// PRIMARY KEY (...) clause, and a non-empty Engine adds ENGINE = <Engine>
// after the column list:
//
//	CREATE TABLE `db`.`t` (
//	  `id` bigint NOT NULL,
//	  PRIMARY KEY (`id`)
//	) ENGINE = MergeTree;
func (b Builder) CreateTable(t TableDef) (string, error) {
	t.Name = trimName(t.Name)
	if t.Name.Table == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	name := b.Quoter.Name(t.Name)
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		colName := strings.TrimSpace(c.Name)
		if colName == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", colName)
		}

		var sb strings.Builder
		sb.WriteString(b.Quoter.Ident(colName))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, b.Quoter.Ident(colName))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	var engine string
	if e := strings.TrimSpace(t.Engine); e != "" {
		engine = " ENGINE = " + e
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)%s;",
		name,
		strings.Join(cols, ",\n  "),
		engine,
	), nil
}

func trimName(n QualifiedName) QualifiedName {
	return QualifiedName{
		Catalog: strings.TrimSpace(n.Catalog),
		Schema:  strings.TrimSpace(n.Schema),
		Table:   strings.TrimSpace(n.Table),
	}
}
