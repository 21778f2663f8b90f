package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (unquoted; quoting/escaping happens at render time)
//   - SQLType: native type, typically a mapping.WriteMapping.TypeName
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', now())
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the qualified table name, its ordered columns and the
// table engine. An empty Engine omits the ENGINE clause.
type TableDef struct {
	Name    QualifiedName
	Columns []ColumnDef
	Engine  string
}

// QualifiedName identifies a table. Empty parts are omitted when rendered.
type QualifiedName struct {
	Catalog string
	Schema  string
	Table   string
}

// SchemaTableName is the engine-side name of a table.
type SchemaTableName struct {
	Schema string
	Table  string
}

// RenameRequest asks to rename From to To.
type RenameRequest struct {
	From QualifiedName
	To   SchemaTableName
	// UpperCase folds the new name to upper case, for stores that report
	// upper-case identifiers.
	UpperCase bool
}
