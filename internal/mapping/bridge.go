package mapping

import (
	"fmt"

	"chbridge/internal/types"
)

// Bridge applies the ClickHouse-specific mapping rules in a fixed order and
// falls through to a BaseMapper for everything else.
type Bridge struct {
	base BaseMapper
}

// NewBridge returns a Bridge over base. A nil base uses StandardMappings.
func NewBridge(base BaseMapper) *Bridge {
	if base == nil {
		base = StandardMappings{}
	}
	return &Bridge{base: base}
}

// ToCanonical maps a native column type. ok=false means the type is
// unsupported and the column should be skipped; err is reserved for
// descriptors that cannot be evaluated at all.
//
// Rules, first match wins:
//  1. native name listed in Session.ForcedVarchar -> unbounded varchar
//  2. native name "json"                          -> json, canonicalized on read
//  3. decimal wider than the engine maximum under allow_overflow
//     -> decimal(38, min(scale, default scale)); this loses digits
//  4. the base table
func (b *Bridge) ToCanonical(s Session, d Descriptor) (ColumnMapping, bool, error) {
	if d.TypeName == "" {
		return ColumnMapping{}, false, fmt.Errorf("type name is missing: %+v", d)
	}

	if s.forcesVarchar(d) {
		return ColumnMapping{
			Type:     types.UnboundedVarchar,
			Read:     textReadFunc,
			Write:    varcharWriteFunc,
			Pushdown: PushdownDisabled,
		}, true, nil
	}

	if d.hasTypeName("json") {
		return jsonColumnMapping(), true, nil
	}

	if d.Code == TypeDecimal && s.DecimalMapping == DecimalAllowOverflow &&
		d.ColumnSize > types.MaxDecimalPrecision {
		scale := min(d.DecimalDigits, s.DecimalDefaultScale)
		t, err := types.Decimal(types.MaxDecimalPrecision, max(scale, 0))
		if err != nil {
			return ColumnMapping{}, false, err
		}
		return decimalColumnMapping(t, s.RoundingMode), true, nil
	}

	m, ok := b.base.ToCanonical(s, d)
	return m, ok, nil
}

// ToWriteMapping picks the native type used when creating columns for t.
// Types without a mapping fail with ErrUnsupportedColumnType.
func (b *Bridge) ToWriteMapping(s Session, t types.Type) (WriteMapping, error) {
	switch {
	case t == types.Real:
		return WriteMapping{TypeName: "float", Write: realWriteFunc}, nil
	case t == types.TimeWithTimeZone || t == types.TimestampWithTimeZone:
		return WriteMapping{}, fmt.Errorf("%w: %s", ErrUnsupportedColumnType, t.DisplayName())
	case t == types.Timestamp:
		return WriteMapping{TypeName: "datetime", Write: timestampWriteFunc(s)}, nil
	case t == types.Varbinary:
		return WriteMapping{TypeName: "mediumblob", Write: varbinaryWriteFunc}, nil
	case t.IsVarchar():
		return WriteMapping{TypeName: textTypeFor(t), Write: varcharWriteFunc}, nil
	case t == types.JSONType:
		return WriteMapping{TypeName: "json", Write: varcharWriteFunc}, nil
	}
	return b.base.ToWriteMapping(s, t)
}

// textTypeFor picks the smallest text type holding t's bounded length.
func textTypeFor(t types.Type) string {
	switch {
	case t.IsUnbounded():
		return "longtext"
	case t.BoundedLength() <= 255:
		return "tinytext"
	case t.BoundedLength() <= 65535:
		return "text"
	case t.BoundedLength() <= 16777215:
		return "mediumtext"
	default:
		return "longtext"
	}
}

func jsonColumnMapping() ColumnMapping {
	return ColumnMapping{
		Type:     types.JSONType,
		Read:     jsonReadFunc,
		Write:    varcharWriteFunc,
		Pushdown: PushdownDisabled,
	}
}
