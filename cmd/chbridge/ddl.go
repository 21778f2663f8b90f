package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chbridge/internal/client"
	"chbridge/internal/ddl"
	"chbridge/internal/types"
)

// ddlOptions are shared by the ddl subcommands. With dryRun the statement
// is printed and the store is never contacted.
type ddlOptions struct {
	dryRun bool
	upper  bool
}

func newDDLCommand(o *rootOptions) *cobra.Command {
	d := &ddlOptions{}
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Run schema changes the way the engine issues them",
	}
	cmd.PersistentFlags().BoolVar(&d.dryRun, "dry-run", false, "print the statement instead of running it")
	cmd.PersistentFlags().BoolVar(&d.upper, "upper", false, "with --dry-run, fold new names as an upper-case store would")

	cmd.AddCommand(
		newCreateTableCommand(o, d),
		newRenameColumnCommand(o, d),
		newRenameTableCommand(o, d),
		newCopyTableCommand(o, d),
		newDropTableCommand(o, d),
	)
	return cmd
}

func (d *ddlOptions) print(cmd *cobra.Command, sql string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), sql)
	return err
}

func newCreateTableCommand(o *rootOptions, d *ddlOptions) *cobra.Command {
	var specs []string
	var engine string
	cmd := &cobra.Command{
		Use:   "create-table <schema.table> --column name:type[:null][:pk]...",
		Short: "Create a table from canonical column types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseName(args[0])
			if err != nil {
				return err
			}
			cols, err := parseColumnSpecs(specs)
			if err != nil {
				return err
			}
			opts := []client.Option{client.WithEngine(engine)}
			if d.dryRun {
				s, err := o.cfg.Session()
				if err != nil {
					return err
				}
				sql, err := client.New(o.cfg.Catalog, nil, s, opts...).CreateTableSQL(name, cols)
				if err != nil {
					return err
				}
				return d.print(cmd, sql)
			}
			c, err := o.connect(cmd, opts...)
			if err != nil {
				return err
			}
			return c.CreateTable(cmd.Context(), name, cols)
		},
	}
	cmd.Flags().StringArrayVar(&specs, "column", nil, "column as name:type[:null][:pk] (repeatable)")
	cmd.Flags().StringVar(&engine, "engine", "MergeTree", "table engine clause")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newRenameColumnCommand(o *rootOptions, d *ddlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-column <schema.table> <column> <new-name>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseName(args[0])
			if err != nil {
				return err
			}
			if d.dryRun {
				return d.print(cmd, ddl.Default.RenameColumn(name, args[1], args[2], d.upper))
			}
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			return c.RenameColumn(cmd.Context(), name, args[1], args[2])
		},
	}
}

func newRenameTableCommand(o *rootOptions, d *ddlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-table <database.table> <database.new-table>",
		Short: "Rename or move a table",
		Long: `The source is the engine's handle: the engine presents each ClickHouse
database as a catalog, so "db.table" means catalog db. A three-part
"catalog.schema.table" handle cannot be expressed and is rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			toName, err := parseName(args[1])
			if err != nil {
				return err
			}
			to := ddl.SchemaTableName{Schema: toName.Schema, Table: toName.Table}
			if d.dryRun {
				sql, err := ddl.Default.RenameTable(ddl.RenameRequest{From: from, To: to, UpperCase: d.upper})
				if err != nil {
					return err
				}
				return d.print(cmd, sql)
			}
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			return c.RenameTable(cmd.Context(), from, to)
		},
	}
}

func newCopyTableCommand(o *rootOptions, d *ddlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-table <schema.table> <new-table>",
		Short: "Create an empty table with the layout of another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseName(args[0])
			if err != nil {
				return err
			}
			if d.dryRun {
				target := source
				target.Table = args[1]
				return d.print(cmd, ddl.Default.CreateTableLike(target, source))
			}
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			return c.CopyTableSchema(cmd.Context(), source, args[1])
		},
	}
}

func newDropTableCommand(o *rootOptions, d *ddlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-table <schema.table>",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseName(args[0])
			if err != nil {
				return err
			}
			if d.dryRun {
				return d.print(cmd, ddl.Default.DropTable(name))
			}
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			return c.DropTable(cmd.Context(), name)
		},
	}
}

// parseName reads "table" or "schema.table".
func parseName(s string) (ddl.QualifiedName, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return ddl.QualifiedName{}, fmt.Errorf("bad table name %q", s)
		}
	}
	switch len(parts) {
	case 1:
		return ddl.QualifiedName{Table: parts[0]}, nil
	case 2:
		return ddl.QualifiedName{Schema: parts[0], Table: parts[1]}, nil
	}
	return ddl.QualifiedName{}, fmt.Errorf("bad table name %q: want [schema.]table", s)
}

// parseHandle reads an engine handle: "catalog.table" or
// "catalog.schema.table".
func parseHandle(s string) (ddl.QualifiedName, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return ddl.QualifiedName{}, fmt.Errorf("bad table handle %q", s)
		}
	}
	switch len(parts) {
	case 2:
		return ddl.QualifiedName{Catalog: parts[0], Table: parts[1]}, nil
	case 3:
		return ddl.QualifiedName{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
	}
	return ddl.QualifiedName{}, fmt.Errorf("bad table handle %q: want catalog.table", s)
}

// parseColumnSpecs reads name:type[:null][:pk] entries.
func parseColumnSpecs(specs []string) ([]client.NewColumn, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --column is required")
	}
	cols := make([]client.NewColumn, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("column %q: want name:type[:null][:pk]", spec)
		}
		t, err := types.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec, err)
		}
		col := client.NewColumn{Name: parts[0], Type: t}
		for _, f := range parts[2:] {
			switch strings.ToLower(f) {
			case "null":
				col.Nullable = true
			case "pk":
				col.PrimaryKey = true
			default:
				return nil, fmt.Errorf("column %q: unknown attribute %q", spec, f)
			}
		}
		cols = append(cols, col)
	}
	return cols, nil
}
