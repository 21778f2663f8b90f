package sqlite

import (
	"strconv"
	"strings"

	"chbridge/internal/mapping"
)

// Describe classifies a SQLite column declaration such as "VARCHAR(64)" or
// "DECIMAL(12, 2)". Well-known names map directly; anything else falls back
// to SQLite's type affinity rules. An empty declaration is a BLOB.
func Describe(decl string) mapping.Descriptor {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return mapping.Descriptor{Code: mapping.TypeBinary, TypeName: "BLOB"}
	}

	name, args := decl, []int(nil)
	if i := strings.IndexByte(decl, '('); i >= 0 && strings.HasSuffix(decl, ")") {
		name = strings.TrimSpace(decl[:i])
		for _, a := range strings.Split(decl[i+1:len(decl)-1], ",") {
			n, _ := strconv.Atoi(strings.TrimSpace(a))
			args = append(args, n)
		}
	}
	arg := func(i int) int {
		if i < len(args) {
			return args[i]
		}
		return 0
	}

	d := mapping.Descriptor{TypeName: name}
	switch strings.ToUpper(name) {
	case "BOOLEAN", "BOOL":
		d.Code = mapping.TypeBoolean
	case "TINYINT":
		d.Code = mapping.TypeTinyint
	case "SMALLINT":
		d.Code = mapping.TypeSmallint
	case "INT", "INTEGER", "MEDIUMINT":
		// INTEGER columns hold 64-bit values.
		d.Code = mapping.TypeBigint
	case "BIGINT":
		d.Code = mapping.TypeBigint
	case "FLOAT", "REAL", "DOUBLE", "DOUBLE PRECISION":
		d.Code = mapping.TypeDouble
	case "DECIMAL", "NUMERIC":
		d.Code, d.ColumnSize, d.DecimalDigits = mapping.TypeDecimal, arg(0), arg(1)
		if d.ColumnSize == 0 {
			d.Code = mapping.TypeOther
		}
	case "CHAR", "CHARACTER", "NCHAR":
		d.Code, d.ColumnSize = mapping.TypeChar, max(arg(0), 1)
	case "VARCHAR", "CHARACTER VARYING", "NVARCHAR", "VARYING CHARACTER":
		d.Code, d.ColumnSize = mapping.TypeVarchar, arg(0)
	case "TEXT", "CLOB":
		d.Code = mapping.TypeLongVarchar
	case "BLOB":
		d.Code = mapping.TypeLongVarbinary
	case "DATE":
		d.Code = mapping.TypeDate
	case "TIME":
		d.Code = mapping.TypeTime
	case "DATETIME", "TIMESTAMP":
		d.Code = mapping.TypeTimestamp
	case "JSON":
		d.Code = mapping.TypeOther
	default:
		d.Code = affinity(strings.ToUpper(name))
	}
	return d
}

// affinity applies SQLite's column affinity rules, in their order.
func affinity(upper string) mapping.JDBCType {
	switch {
	case strings.Contains(upper, "INT"):
		return mapping.TypeBigint
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return mapping.TypeLongVarchar
	case strings.Contains(upper, "BLOB"):
		return mapping.TypeLongVarbinary
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		return mapping.TypeDouble
	default:
		return mapping.TypeOther
	}
}
