package clickhouse

import (
	"strconv"
	"strings"

	"chbridge/internal/mapping"
)

// Describe classifies a ClickHouse column type such as
// "Nullable(Decimal(40, 10))" or "LowCardinality(String)" into a
// descriptor. Wrappers are peeled off; Nullable sets Nullable. Types with no
// relational equivalent (arrays, maps, tuples, UUID, IP addresses) get
// TypeOther and keep their name so they can be forced to varchar.
func Describe(native string) mapping.Descriptor {
	t := strings.TrimSpace(native)
	d := mapping.Descriptor{}
	for {
		name, args := splitType(t)
		switch name {
		case "Nullable":
			d.Nullable = true
			t = args
			continue
		case "LowCardinality", "SimpleAggregateFunction":
			if name == "SimpleAggregateFunction" {
				// SimpleAggregateFunction(fn, T)
				if i := strings.Index(args, ","); i >= 0 {
					args = strings.TrimSpace(args[i+1:])
				}
			}
			t = args
			continue
		}
		d.TypeName = name
		classify(&d, name, args)
		return d
	}
}

func classify(d *mapping.Descriptor, name, args string) {
	switch name {
	case "Bool", "Boolean":
		d.Code = mapping.TypeBoolean
	case "Int8":
		d.Code, d.ColumnSize = mapping.TypeTinyint, 3
	case "UInt8", "Int16":
		d.Code, d.ColumnSize = mapping.TypeSmallint, 5
	case "UInt16", "Int32":
		d.Code, d.ColumnSize = mapping.TypeInteger, 10
	case "UInt32", "Int64":
		d.Code, d.ColumnSize = mapping.TypeBigint, 19
	case "UInt64":
		d.Code, d.ColumnSize = mapping.TypeDecimal, 20
	case "Int128", "UInt128":
		d.Code, d.ColumnSize = mapping.TypeDecimal, 39
	case "Int256", "UInt256":
		d.Code, d.ColumnSize = mapping.TypeDecimal, 77
	case "Float32":
		d.Code = mapping.TypeReal
	case "Float64":
		d.Code = mapping.TypeDouble
	case "Decimal":
		d.Code = mapping.TypeDecimal
		d.ColumnSize, d.DecimalDigits = 10, 0
		parts := splitArgs(args)
		if len(parts) > 0 {
			d.ColumnSize = atoi(parts[0])
		}
		if len(parts) > 1 {
			d.DecimalDigits = atoi(parts[1])
		}
	case "Decimal32", "Decimal64", "Decimal128", "Decimal256":
		d.Code = mapping.TypeDecimal
		d.ColumnSize = map[string]int{"Decimal32": 9, "Decimal64": 18, "Decimal128": 38, "Decimal256": 76}[name]
		d.DecimalDigits = atoi(args)
	case "String":
		d.Code = mapping.TypeVarchar
	case "FixedString":
		d.Code, d.ColumnSize = mapping.TypeChar, atoi(args)
	case "Enum8", "Enum16":
		d.Code = mapping.TypeVarchar
	case "Date", "Date32":
		d.Code = mapping.TypeDate
	case "DateTime":
		d.Code = mapping.TypeTimestamp
		if args != "" {
			// DateTime('Zone') carries a zone the engine type cannot hold.
			d.Code = mapping.TypeOther
		}
	case "DateTime64":
		d.Code = mapping.TypeTimestamp
		parts := splitArgs(args)
		if len(parts) > 0 {
			d.DecimalDigits = atoi(parts[0])
		}
		if len(parts) > 1 {
			d.Code = mapping.TypeOther
		}
	case "JSON", "Object":
		d.Code = mapping.TypeOther
		d.TypeName = "JSON"
	default:
		d.Code = mapping.TypeOther
	}
}

// splitType splits "Name(args)" into its parts. A bare name has no args.
func splitType(t string) (string, string) {
	i := strings.IndexByte(t, '(')
	if i < 0 || !strings.HasSuffix(t, ")") {
		return t, ""
	}
	return strings.TrimSpace(t[:i]), strings.TrimSpace(t[i+1 : len(t)-1])
}

// splitArgs splits top-level comma separated arguments, ignoring commas
// nested inside parentheses or quotes.
func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(args); i++ {
		switch c := args[i]; {
		case c == '\'':
			quote = !quote
		case quote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(args[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(args[start:]))
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
