// Package types defines the engine's canonical type system as seen by the
// bridge: a small comparable Type value plus the Go representations used for
// canonical values.
//
// Canonical value representations:
//
//	BOOLEAN                  -> bool
//	TINYINT..BIGINT          -> int64
//	REAL                     -> float32
//	DOUBLE                   -> float64
//	DECIMAL                  -> *apd.Decimal
//	CHAR, VARCHAR            -> string
//	VARBINARY                -> []byte
//	DATE, TIMESTAMP          -> time.Time (UTC wall clock)
//	TIME                     -> time.Duration since midnight
//	JSON                     -> JSON (canonical bytes)
package types

import (
	"fmt"
)

// MaxDecimalPrecision is the largest decimal precision the engine supports.
const MaxDecimalPrecision = 38

// MaxVarcharLength is the largest bounded varchar length. Longer declared
// lengths are treated as unbounded.
const MaxVarcharLength = 2147483646

// Kind identifies a canonical type family.
type Kind int

const (
	KindUnknown Kind = iota
	KindBoolean
	KindTinyint
	KindSmallint
	KindInteger
	KindBigint
	KindReal
	KindDouble
	KindDecimal
	KindChar
	KindVarchar
	KindVarbinary
	KindDate
	KindTime
	KindTimeWithTimeZone
	KindTimestamp
	KindTimestampWithTimeZone
	KindJSON
)

var kindNames = map[Kind]string{
	KindBoolean:               "boolean",
	KindTinyint:               "tinyint",
	KindSmallint:              "smallint",
	KindInteger:               "integer",
	KindBigint:                "bigint",
	KindReal:                  "real",
	KindDouble:                "double",
	KindDecimal:               "decimal",
	KindChar:                  "char",
	KindVarchar:               "varchar",
	KindVarbinary:             "varbinary",
	KindDate:                  "date",
	KindTime:                  "time",
	KindTimeWithTimeZone:      "time with time zone",
	KindTimestamp:             "timestamp",
	KindTimestampWithTimeZone: "timestamp with time zone",
	KindJSON:                  "json",
}

// String returns the engine's base name for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Type is a canonical type. It is a plain value and compares with ==.
//
// Precision/Scale are only meaningful for DECIMAL; Length/Bounded for CHAR
// and VARCHAR.
type Type struct {
	Kind      Kind
	Precision int
	Scale     int
	Length    int
	Bounded   bool
}

// Fixed-shape canonical types.
var (
	Boolean               = Type{Kind: KindBoolean}
	Tinyint               = Type{Kind: KindTinyint}
	Smallint              = Type{Kind: KindSmallint}
	Integer               = Type{Kind: KindInteger}
	Bigint                = Type{Kind: KindBigint}
	Real                  = Type{Kind: KindReal}
	Double                = Type{Kind: KindDouble}
	Varbinary             = Type{Kind: KindVarbinary}
	Date                  = Type{Kind: KindDate}
	Time                  = Type{Kind: KindTime}
	TimeWithTimeZone      = Type{Kind: KindTimeWithTimeZone}
	Timestamp             = Type{Kind: KindTimestamp}
	TimestampWithTimeZone = Type{Kind: KindTimestampWithTimeZone}
	JSONType              = Type{Kind: KindJSON}
	UnboundedVarchar      = Type{Kind: KindVarchar}
)

// Decimal returns DECIMAL(precision, scale). It fails when precision is
// outside 1..MaxDecimalPrecision or scale is outside 0..precision.
func Decimal(precision, scale int) (Type, error) {
	if precision < 1 || precision > MaxDecimalPrecision {
		return Type{}, fmt.Errorf("types: decimal precision must be in range [1, %d]: %d", MaxDecimalPrecision, precision)
	}
	if scale < 0 || scale > precision {
		return Type{}, fmt.Errorf("types: decimal scale must be in range [0, %d]: %d", precision, scale)
	}
	return Type{Kind: KindDecimal, Precision: precision, Scale: scale}, nil
}

// MustDecimal is Decimal for constant arguments; it panics on invalid input.
func MustDecimal(precision, scale int) Type {
	t, err := Decimal(precision, scale)
	if err != nil {
		panic(err)
	}
	return t
}

// Varchar returns VARCHAR(length). Lengths above MaxVarcharLength (or
// negative) yield the unbounded varchar.
func Varchar(length int) Type {
	if length < 0 || length > MaxVarcharLength {
		return UnboundedVarchar
	}
	return Type{Kind: KindVarchar, Length: length, Bounded: true}
}

// Char returns CHAR(length).
func Char(length int) Type {
	return Type{Kind: KindChar, Length: length, Bounded: true}
}

// IsVarchar reports whether t is a VARCHAR of any length.
func (t Type) IsVarchar() bool { return t.Kind == KindVarchar }

// IsUnbounded reports whether t is a VARCHAR without a declared length.
func (t Type) IsUnbounded() bool { return t.Kind == KindVarchar && !t.Bounded }

// BoundedLength returns the declared length of a bounded CHAR/VARCHAR.
func (t Type) BoundedLength() int { return t.Length }

// String renders the type in engine syntax, e.g. decimal(38,10), varchar(255).
func (t Type) String() string {
	switch t.Kind {
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case KindVarchar, KindChar:
		if t.Bounded {
			return fmt.Sprintf("%s(%d)", t.Kind, t.Length)
		}
		return t.Kind.String()
	default:
		return t.Kind.String()
	}
}

// DisplayName is the name used in user-facing errors.
func (t Type) DisplayName() string { return t.String() }
