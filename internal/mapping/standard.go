package mapping

import (
	"fmt"

	"chbridge/internal/types"
)

// StandardMappings is the baseline table for integer, floating, decimal,
// text, binary and temporal types. Store-specific bridges consult it after
// their own rules.
type StandardMappings struct{}

var _ BaseMapper = StandardMappings{}

// ToCanonical maps d by its type code. Decimals wider than the engine's
// maximum precision are left unmapped here.
func (StandardMappings) ToCanonical(s Session, d Descriptor) (ColumnMapping, bool) {
	switch d.Code {
	case TypeBit, TypeBoolean:
		return ColumnMapping{Type: types.Boolean, Read: booleanReadFunc, Write: booleanWriteFunc}, true
	case TypeTinyint:
		return ColumnMapping{Type: types.Tinyint, Read: integerReadFunc(8), Write: integerWriteFunc}, true
	case TypeSmallint:
		return ColumnMapping{Type: types.Smallint, Read: integerReadFunc(16), Write: integerWriteFunc}, true
	case TypeInteger:
		return ColumnMapping{Type: types.Integer, Read: integerReadFunc(32), Write: integerWriteFunc}, true
	case TypeBigint:
		return ColumnMapping{Type: types.Bigint, Read: integerReadFunc(64), Write: integerWriteFunc}, true
	case TypeReal:
		return ColumnMapping{Type: types.Real, Read: realReadFunc, Write: realWriteFunc}, true
	case TypeFloat, TypeDouble:
		return ColumnMapping{Type: types.Double, Read: doubleReadFunc, Write: doubleWriteFunc}, true
	case TypeNumeric, TypeDecimal:
		t, err := types.Decimal(d.ColumnSize, max(d.DecimalDigits, 0))
		if err != nil {
			return ColumnMapping{}, false
		}
		return decimalColumnMapping(t, RoundUnnecessary), true
	case TypeChar, TypeNChar:
		return ColumnMapping{Type: types.Char(d.ColumnSize), Read: charReadFunc, Write: varcharWriteFunc}, true
	case TypeVarchar, TypeNVarchar, TypeLongVarchar, TypeLongNVarchar:
		t := types.UnboundedVarchar
		if d.ColumnSize > 0 {
			t = types.Varchar(d.ColumnSize)
		}
		return ColumnMapping{Type: t, Read: varcharReadFunc, Write: varcharWriteFunc}, true
	case TypeBinary, TypeVarbinary, TypeLongVarbinary:
		return ColumnMapping{
			Type:     types.Varbinary,
			Read:     varbinaryReadFunc,
			Write:    varbinaryWriteFunc,
			Pushdown: PushdownDisabled,
		}, true
	case TypeDate:
		return ColumnMapping{Type: types.Date, Read: dateReadFunc, Write: dateWriteFunc}, true
	case TypeTime:
		return ColumnMapping{Type: types.Time, Read: timeReadFunc, Write: timeWriteFunc}, true
	case TypeTimestamp:
		return ColumnMapping{Type: types.Timestamp, Read: timestampReadFunc, Write: timestampWriteFunc(s)}, true
	}
	return ColumnMapping{}, false
}

// ToWriteMapping maps t to a generic SQL type name.
func (StandardMappings) ToWriteMapping(s Session, t types.Type) (WriteMapping, error) {
	switch t.Kind {
	case types.KindBoolean:
		return WriteMapping{TypeName: "boolean", Write: booleanWriteFunc}, nil
	case types.KindTinyint:
		return WriteMapping{TypeName: "tinyint", Write: integerWriteFunc}, nil
	case types.KindSmallint:
		return WriteMapping{TypeName: "smallint", Write: integerWriteFunc}, nil
	case types.KindInteger:
		return WriteMapping{TypeName: "integer", Write: integerWriteFunc}, nil
	case types.KindBigint:
		return WriteMapping{TypeName: "bigint", Write: integerWriteFunc}, nil
	case types.KindDouble:
		return WriteMapping{TypeName: "double precision", Write: doubleWriteFunc}, nil
	case types.KindReal:
		return WriteMapping{TypeName: "real", Write: realWriteFunc}, nil
	case types.KindDecimal:
		return WriteMapping{
			TypeName: fmt.Sprintf("decimal(%d, %d)", t.Precision, t.Scale),
			Write:    decimalWriteFunc(t),
		}, nil
	case types.KindChar:
		return WriteMapping{TypeName: fmt.Sprintf("char(%d)", t.Length), Write: varcharWriteFunc}, nil
	case types.KindVarchar:
		if t.IsUnbounded() {
			return WriteMapping{TypeName: "varchar", Write: varcharWriteFunc}, nil
		}
		return WriteMapping{TypeName: fmt.Sprintf("varchar(%d)", t.Length), Write: varcharWriteFunc}, nil
	case types.KindVarbinary:
		return WriteMapping{TypeName: "varbinary", Write: varbinaryWriteFunc}, nil
	case types.KindDate:
		return WriteMapping{TypeName: "date", Write: dateWriteFunc}, nil
	case types.KindTime:
		return WriteMapping{TypeName: "time", Write: timeWriteFunc}, nil
	case types.KindTimestamp:
		return WriteMapping{TypeName: "timestamp", Write: timestampWriteFunc(s)}, nil
	}
	return WriteMapping{}, fmt.Errorf("%w: %s", ErrUnsupportedColumnType, t.DisplayName())
}

func decimalColumnMapping(t types.Type, mode RoundingMode) ColumnMapping {
	return ColumnMapping{
		Type:  t,
		Read:  decimalReadFunc(t, mode),
		Write: decimalWriteFunc(t),
	}
}
