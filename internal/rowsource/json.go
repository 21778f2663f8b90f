// Package rowsource streams JSON records as rows aligned to a column list,
// ready for the staged write path.
//
// Accepted input, any number of top-level values back to back (NDJSON or a
// single document):
//
//   - a record: an array of values in column order, or an object keyed by
//     column name (missing keys are NULL, unknown keys are ignored)
//   - an array whose elements are all records: each element is emitted
//   - an envelope object with no column keys: the records are taken from
//     its first array-of-records field, in key order
//
// Numbers are decoded as json.Number so no precision is lost before the
// column's conversion runs.
package rowsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ConvertFunc turns the decoded JSON value for columns[i] into the value
// sent downstream.
type ConvertFunc func(i int, v any) (any, error)

// StreamJSON decodes r and sends one row per record to out. convert may be
// nil to pass decoded values through. Errors name the 1-based record.
func StreamJSON(ctx context.Context, r io.Reader, columns []string, convert ConvertFunc, out chan<- []any) error {
	if len(columns) == 0 {
		return fmt.Errorf("rowsource: no columns")
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	record := 0
	emit := func(rec any) error {
		record++
		row, err := toRow(rec, columns, index)
		if err == nil && convert != nil {
			for i, v := range row {
				if row[i], err = convert(i, v); err != nil {
					err = fmt.Errorf("column %s: %w", columns[i], err)
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("rowsource: record %d: %w", record, err)
		}
		select {
		case out <- row:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("rowsource: after record %d: %w", record, err)
		}
		for _, rec := range expand(v, index) {
			if err := emit(rec); err != nil {
				return err
			}
		}
	}
}

// expand splits one top-level value into its records.
func expand(v any, index map[string]int) []any {
	switch x := v.(type) {
	case []any:
		if allRecords(x) {
			return x
		}
	case map[string]any:
		for k := range x {
			if _, ok := index[k]; ok {
				return []any{x}
			}
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := x[k].([]any); ok && allRecords(arr) {
				return arr
			}
		}
	}
	return []any{v}
}

func allRecords(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	for _, e := range arr {
		switch e.(type) {
		case []any, map[string]any:
		default:
			return false
		}
	}
	return true
}

func toRow(rec any, columns []string, index map[string]int) ([]any, error) {
	switch x := rec.(type) {
	case []any:
		if len(x) != len(columns) {
			return nil, fmt.Errorf("%d values, want %d", len(x), len(columns))
		}
		return x, nil
	case map[string]any:
		row := make([]any, len(columns))
		for k, v := range x {
			if i, ok := index[k]; ok {
				row[i] = v
			}
		}
		return row, nil
	default:
		return nil, fmt.Errorf("unsupported record type %T (want array or object)", rec)
	}
}
