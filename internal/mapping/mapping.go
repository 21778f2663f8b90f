// Package mapping translates between the store's native column types and the
// engine's canonical types.
//
// The read path turns a Descriptor into a ColumnMapping (canonical type plus
// read/write functions); the write path turns a canonical type into a
// WriteMapping (native type name plus write function). Both are pure given
// their inputs and the Session.
package mapping

import (
	"errors"

	"chbridge/internal/types"
)

// ErrUnsupportedColumnType is returned when a type has no mapping in either
// direction.
var ErrUnsupportedColumnType = errors.New("unsupported column type")

// ReadFunc converts a value scanned from the store (nil, bool, int64,
// float64, []byte, string, time.Time) into its canonical representation.
// nil always maps to nil.
type ReadFunc func(src any) (any, error)

// WriteFunc converts a canonical value into a driver.Value-compatible value
// for statement parameters. nil always maps to nil.
type WriteFunc func(v any) (any, error)

// PushdownMode says whether predicates and aggregates on a column may be
// delegated to the store.
type PushdownMode int

const (
	PushdownEnabled PushdownMode = iota
	PushdownDisabled
)

// ColumnMapping is the read-path result for one column.
type ColumnMapping struct {
	Type     types.Type
	Read     ReadFunc
	Write    WriteFunc
	Pushdown PushdownMode
}

// WriteMapping is the write-path result for one canonical type.
type WriteMapping struct {
	TypeName string
	Write    WriteFunc
}

// BaseMapper is the baseline mapping table consulted after the store-specific
// rules. ToCanonical reports ok=false when no mapping applies; ToWriteMapping
// returns an error wrapping ErrUnsupportedColumnType.
type BaseMapper interface {
	ToCanonical(s Session, d Descriptor) (ColumnMapping, bool)
	ToWriteMapping(s Session, t types.Type) (WriteMapping, error)
}
