package mapping

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"chbridge/internal/types"
)

// workingPrecision bounds intermediate coefficients while rescaling. Native
// decimals can be wider than the engine's maximum; the result is checked
// against the target precision afterwards.
const workingPrecision = 2 * 76

var apdRounders = map[RoundingMode]apd.Rounder{
	RoundUnnecessary: apd.RoundDown,
	RoundHalfUp:      apd.RoundHalfUp,
	RoundHalfEven:    apd.RoundHalfEven,
	RoundHalfDown:    apd.RoundHalfDown,
	RoundUp:          apd.RoundUp,
	RoundDown:        apd.RoundDown,
	RoundCeiling:     apd.RoundCeiling,
	RoundFloor:       apd.RoundFloor,
}

// rescale returns x at exactly t.Scale fractional digits using mode. It
// fails when rounding is required under RoundUnnecessary or when the result
// needs more than t.Precision digits.
func rescale(x *apd.Decimal, t types.Type, mode RoundingMode) (*apd.Decimal, error) {
	ctx := apd.Context{
		Precision:   workingPrecision,
		MaxExponent: apd.MaxExponent,
		MinExponent: apd.MinExponent,
		Traps:       apd.DefaultTraps &^ (apd.Inexact | apd.Rounded),
		Rounding:    apdRounders[mode],
	}
	out := new(apd.Decimal)
	cond, err := ctx.Quantize(out, x, -int32(t.Scale))
	if err != nil {
		return nil, fmt.Errorf("rescale %s to %s: %w", x.Text('f'), t, err)
	}
	if mode == RoundUnnecessary && cond.Inexact() {
		return nil, fmt.Errorf("rescale %s to %s: rounding necessary", x.Text('f'), t)
	}
	if !out.IsZero() && out.NumDigits() > int64(t.Precision) {
		return nil, fmt.Errorf("decimal overflow: %s does not fit %s", x.Text('f'), t)
	}
	return out, nil
}

// toDecimal converts a scanned or canonical value into an apd.Decimal.
func toDecimal(v any) (*apd.Decimal, error) {
	switch x := v.(type) {
	case *apd.Decimal:
		return x, nil
	case apd.Decimal:
		return &x, nil
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case int64:
		return apd.New(x, 0), nil
	case int:
		return apd.New(int64(x), 0), nil
	case float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(x); err != nil {
			return nil, fmt.Errorf("decimal from %v: %w", x, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot read %T as decimal", v)
	}
}

func parseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("parse decimal %q: not a finite number", s)
	}
	return d, nil
}

// decimalReadFunc reads values at t's scale, rounding with mode.
func decimalReadFunc(t types.Type, mode RoundingMode) ReadFunc {
	return func(src any) (any, error) {
		if src == nil {
			return nil, nil
		}
		d, err := toDecimal(src)
		if err != nil {
			return nil, err
		}
		return rescale(d, t, mode)
	}
}

// decimalWriteFunc renders decimals as plain text, which every driver
// accepts for DECIMAL parameters without float conversion.
func decimalWriteFunc(t types.Type) WriteFunc {
	return func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		d, err = rescale(d, t, RoundUnnecessary)
		if err != nil {
			return nil, err
		}
		return d.Text('f'), nil
	}
}
