package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chbridge/internal/client"
	"chbridge/internal/ddl"
	"chbridge/internal/jsoncanon"
	"chbridge/internal/rowsource"
	"chbridge/internal/types"
)

func newLoadCommand(o *rootOptions) *cobra.Command {
	var (
		specs     []string
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "load <schema.table> --column name:type...",
		Short: "Append JSON rows through a staging table",
		Long: `Load reads JSON records from stdin: arrays in --column order or objects
keyed by column name, one per line or wrapped in an array. The rows are
staged in a copy of the target and moved over in a single INSERT ... SELECT.
On failure the staging table is dropped and the target is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseName(args[0])
			if err != nil {
				return err
			}
			cols, err := parseColumnSpecs(specs)
			if err != nil {
				return err
			}
			c, err := o.connect(cmd, client.WithBatchSize(batchSize))
			if err != nil {
				return err
			}
			n, err := loadRows(cmd.Context(), c, target, cols, cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&specs, "column", nil, "column as name:type (repeatable)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 1000, "rows per staging insert")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// loadRows runs the insert lifecycle. Decoding happens on the caller's
// goroutine while Load drains the channel.
func loadRows(ctx context.Context, c *client.Client, target ddl.QualifiedName, cols []client.NewColumn, r io.Reader) (int64, error) {
	ins, err := c.BeginInsert(ctx, target, cols)
	if err != nil {
		return 0, err
	}
	names := ins.Columns

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows := make(chan []any)
	loaded := make(chan error, 1)
	go func() {
		_, err := c.Load(ctx, ins, rows)
		if err != nil {
			cancel()
		}
		loaded <- err
	}()

	decodeErr := rowsource.StreamJSON(ctx, r, names, converter(cols), rows)
	close(rows)
	loadErr := <-loaded

	if err := firstErr(decodeErr, loadErr); err != nil {
		if aerr := c.AbortInsert(context.WithoutCancel(ctx), ins); aerr != nil {
			log.Printf("load: abort table=%s err=%v", ins.Temp.Table, aerr)
		}
		return 0, err
	}
	if err := c.FinishInsert(ctx, ins); err != nil {
		return 0, err
	}
	return ins.Staged(), nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// converter adapts canonicalValue to the column list.
func converter(cols []client.NewColumn) rowsource.ConvertFunc {
	return func(i int, v any) (any, error) {
		return canonicalValue(v, cols[i].Type)
	}
}

// canonicalValue converts a decoded JSON value into the Go value the
// engine uses for t.
func canonicalValue(v any, t types.Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	num, isNum := v.(json.Number)
	str, isStr := v.(string)

	switch t.Kind {
	case types.KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case types.KindTinyint, types.KindSmallint, types.KindInteger, types.KindBigint:
		if isNum {
			return num.Int64()
		}
	case types.KindReal:
		if isNum {
			f, err := num.Float64()
			return float32(f), err
		}
	case types.KindDouble:
		if isNum {
			return num.Float64()
		}
	case types.KindDecimal:
		if isNum {
			return num.String(), nil
		}
		if isStr {
			return str, nil
		}
	case types.KindChar, types.KindVarchar:
		if isStr {
			return str, nil
		}
	case types.KindVarbinary:
		if isStr {
			return []byte(str), nil
		}
	case types.KindDate:
		if isStr {
			return time.Parse(time.DateOnly, str)
		}
	case types.KindTime:
		if isStr {
			tm, err := time.Parse(time.TimeOnly, str)
			if err != nil {
				return nil, err
			}
			return tm.Sub(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)), nil
		}
	case types.KindTimestamp:
		if isStr {
			return parseTimestamp(str)
		}
	case types.KindJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		canon, err := jsoncanon.CanonicalizeBytes(b)
		if err != nil {
			return nil, err
		}
		return types.JSON(canon), nil
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, t)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
