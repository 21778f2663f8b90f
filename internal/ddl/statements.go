package ddl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnsupportedOperation marks a request the store cannot express. It is
// returned before any SQL is built.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// TemporaryTablePrefix starts every staging table name.
const TemporaryTablePrefix = "tmp_chbridge_"

// Builder renders DDL for one dialect. The zero value is not usable; use
// Default or set a Quoter.
type Builder struct {
	Quoter Quoter
}

// Default is the ClickHouse builder.
var Default = Builder{Quoter: Backtick}

var upper = cases.Upper(language.English)

// CreateTableLike copies the column layout of source into a new table.
func (b Builder) CreateTableLike(target, source QualifiedName) string {
	return fmt.Sprintf("CREATE TABLE %s LIKE %s", b.Quoter.Name(target), b.Quoter.Name(source))
}

// RenameColumn renames one column of table. upperCase folds the new name
// for stores that keep identifiers in upper case.
func (b Builder) RenameColumn(table QualifiedName, oldName, newName string, upperCase bool) string {
	if upperCase {
		newName = upper.String(newName)
	}
	return fmt.Sprintf(
		"ALTER TABLE %s RENAME COLUMN %s TO %s",
		b.Quoter.Name(table),
		b.Quoter.Ident(oldName),
		b.Quoter.Ident(newName),
	)
}

// RenameTable renames a table within the store.
//
// ClickHouse has databases but no catalogs, and the engine presents each
// database as a catalog. The handle's catalog therefore names the database,
// and a handle that also carries a schema cannot be expressed.
func (b Builder) RenameTable(req RenameRequest) (string, error) {
	if req.From.Schema != "" {
		return "", fmt.Errorf("%w: rename of %s: table handle must not carry a schema",
			ErrUnsupportedOperation, b.Quoter.Name(req.From))
	}

	to := req.To
	if req.UpperCase {
		to.Schema = upper.String(to.Schema)
		to.Table = upper.String(to.Table)
	}

	return fmt.Sprintf(
		"ALTER TABLE %s RENAME TO %s",
		b.Quoter.Qualified(req.From.Catalog, req.From.Table),
		b.Quoter.Qualified(to.Schema, to.Table),
	), nil
}

// DropTable removes a table.
func (b Builder) DropTable(name QualifiedName) string {
	return "DROP TABLE " + b.Quoter.Name(name)
}

// InsertFromSelect copies columns of source into target. An empty column
// list copies every column positionally.
func (b Builder) InsertFromSelect(target, source QualifiedName, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", b.Quoter.Name(target), b.Quoter.Name(source))
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.Quoter.Ident(c)
	}
	list := strings.Join(quoted, ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", b.Quoter.Name(target), list, list, b.Quoter.Name(source))
}

// TemporaryTableName returns a fresh staging table name.
func TemporaryTableName() string {
	return TemporaryTablePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
