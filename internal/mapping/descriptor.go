package mapping

import "strings"

// JDBCType is the store-agnostic native type code reported by column
// metadata. The set mirrors the java.sql.Types categories drivers use.
type JDBCType int

const (
	TypeOther JDBCType = iota
	TypeBit
	TypeBoolean
	TypeTinyint
	TypeSmallint
	TypeInteger
	TypeBigint
	TypeReal
	TypeFloat
	TypeDouble
	TypeNumeric
	TypeDecimal
	TypeChar
	TypeNChar
	TypeVarchar
	TypeNVarchar
	TypeLongVarchar
	TypeLongNVarchar
	TypeBinary
	TypeVarbinary
	TypeLongVarbinary
	TypeDate
	TypeTime
	TypeTimestamp
)

var jdbcTypeNames = [...]string{
	TypeOther:         "OTHER",
	TypeBit:           "BIT",
	TypeBoolean:       "BOOLEAN",
	TypeTinyint:       "TINYINT",
	TypeSmallint:      "SMALLINT",
	TypeInteger:       "INTEGER",
	TypeBigint:        "BIGINT",
	TypeReal:          "REAL",
	TypeFloat:         "FLOAT",
	TypeDouble:        "DOUBLE",
	TypeNumeric:       "NUMERIC",
	TypeDecimal:       "DECIMAL",
	TypeChar:          "CHAR",
	TypeNChar:         "NCHAR",
	TypeVarchar:       "VARCHAR",
	TypeNVarchar:      "NVARCHAR",
	TypeLongVarchar:   "LONGVARCHAR",
	TypeLongNVarchar:  "LONGNVARCHAR",
	TypeBinary:        "BINARY",
	TypeVarbinary:     "VARBINARY",
	TypeLongVarbinary: "LONGVARBINARY",
	TypeDate:          "DATE",
	TypeTime:          "TIME",
	TypeTimestamp:     "TIMESTAMP",
}

func (t JDBCType) String() string {
	if t >= 0 && int(t) < len(jdbcTypeNames) {
		return jdbcTypeNames[t]
	}
	return "OTHER"
}

// Descriptor is the store's metadata for a single column type. It is
// produced by the metadata layer and never mutated.
//
// ColumnSize carries the declared precision (numeric types) or length
// (character/binary types); DecimalDigits carries the declared scale.
type Descriptor struct {
	Code          JDBCType
	TypeName      string
	ColumnSize    int
	DecimalDigits int
	Nullable      bool
}

// hasTypeName reports whether the descriptor's native name matches name,
// ignoring case.
func (d Descriptor) hasTypeName(name string) bool {
	return strings.EqualFold(d.TypeName, name)
}
