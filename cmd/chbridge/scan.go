package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"chbridge/internal/client"
	"chbridge/internal/ddl"
	"chbridge/internal/types"
)

func newScanCommand(o *rootOptions) *cobra.Command {
	var (
		columns []string
		limit   int64
	)
	cmd := &cobra.Command{
		Use:   "scan <schema> <table>",
		Short: "Read rows as canonical values",
		Long: `Scan reads the table through its column mappings and prints one row per
line: tab separated in text format, one JSON object per line in json format.
An interrupt aborts the read connection and stops the scan.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.connect(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cols, err := c.DescribeTable(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if cols, err = pickColumns(cols, columns); err != nil {
				return err
			}

			conn, err := c.OpenReadConnection(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			var aborted atomic.Bool
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					aborted.Store(true)
					c.AbortReadConnection(conn)
				case <-done:
				}
			}()

			w := cmd.OutOrStdout()
			enc := json.NewEncoder(w)
			n := 0
			table := ddl.QualifiedName{Schema: args[0], Table: args[1]}
			// The query outlives ctx so that an interrupt goes through the abort path.
			err = c.Scan(context.WithoutCancel(ctx), conn, table, cols, limit, func(row []any) error {
				n++
				if o.format == "json" {
					obj := make(map[string]any, len(row))
					for i, v := range row {
						obj[cols[i].Name] = jsonValue(v)
					}
					return enc.Encode(obj)
				}
				_, err := fmt.Fprintln(w, textRow(row))
				return err
			})
			if aborted.Load() {
				return fmt.Errorf("scan aborted after %d rows", n)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to read, in order (default all)")
	cmd.Flags().Int64Var(&limit, "limit", -1, "maximum rows to read; negative reads all")
	return cmd
}

// pickColumns selects names from cols in the given order. No names keeps
// every column.
func pickColumns(cols []client.Column, names []string) ([]client.Column, error) {
	if len(names) == 0 {
		return cols, nil
	}
	byName := make(map[string]client.Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	out := make([]client.Column, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist or has no canonical type", n)
		}
		out = append(out, c)
	}
	return out, nil
}

func textRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = textValue(v)
	}
	return strings.Join(parts, "\t")
}

func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case types.JSON:
		return x.String()
	case []byte:
		return fmt.Sprintf("%x", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case types.JSON:
		return json.RawMessage(x)
	case time.Duration:
		return x.String()
	default:
		return v
	}
}
