package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"chbridge/internal/client"
)

func newSchemasCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schemas, without ClickHouse's system database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			set, err := c.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(set))
			for s := range set {
				names = append(names, s)
			}
			sort.Strings(names)
			return o.emit(cmd, names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}
}

type tableRow struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
}

func newTablesCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables [schema] [table]",
		Short: "List tables and views; names match literally",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			var schema, table string
			if len(args) > 0 {
				schema = args[0]
			}
			if len(args) > 1 {
				table = args[1]
			}
			infos, err := c.GetTables(cmd.Context(), schema, table)
			if err != nil {
				return err
			}
			rows := make([]tableRow, len(infos))
			for i, t := range infos {
				rows[i] = tableRow{Schema: t.Schema, Name: t.Name, Kind: t.Kind}
			}
			return o.emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Schema, r.Name, r.Kind)
				}
			})
		},
	}
}

type columnRow struct {
	Table     string `json:"table"`
	Name      string `json:"name"`
	Native    string `json:"native"`
	Canonical string `json:"canonical"`
	Nullable  bool   `json:"nullable"`
}

func newDescribeCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <schema> [table]",
		Short: "Show the canonical type of every supported column",
		Long: `Describe one table, or every table of a schema when the table is omitted.
Columns whose native type has no canonical mapping are left out.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			tables := map[string][]client.Column{}
			if len(args) == 2 {
				cols, err := c.DescribeTable(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				tables[args[1]] = cols
			} else if tables, err = c.DescribeSchema(cmd.Context(), args[0]); err != nil {
				return err
			}

			names := make([]string, 0, len(tables))
			for n := range tables {
				names = append(names, n)
			}
			sort.Strings(names)

			var rows []columnRow
			for _, n := range names {
				for _, col := range tables[n] {
					rows = append(rows, columnRow{
						Table:     n,
						Name:      col.Name,
						Native:    col.Descriptor.TypeName,
						Canonical: col.Mapping.Type.String(),
						Nullable:  col.Descriptor.Nullable,
					})
				}
			}
			return o.emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					null := "NOT NULL"
					if r.Nullable {
						null = "NULL"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Table, r.Name, r.Native, r.Canonical, null)
				}
			})
		},
	}
}
