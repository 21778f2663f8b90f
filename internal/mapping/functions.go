package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"chbridge/internal/jsoncanon"
	"chbridge/internal/types"
)

// Layouts used when drivers return temporal values as text.
const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04:05.999999999"
	timestampLayout = "2006-01-02 15:04:05.999999999"
)

func booleanReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte, string:
		b, err := strconv.ParseBool(asText(v))
		if err != nil {
			return nil, fmt.Errorf("read boolean: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot read %T as boolean", src)
	}
}

// integerReadFunc reads integers and enforces the canonical kind's range.
func integerReadFunc(bits int) ReadFunc {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if bits < 64 {
		lo, hi = -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
	}
	return func(src any) (any, error) {
		var n int64
		switch v := src.(type) {
		case nil:
			return nil, nil
		case int64:
			n = v
		case uint64:
			if v > math.MaxInt64 {
				return nil, fmt.Errorf("value %d out of range for %d-bit integer", v, bits)
			}
			n = int64(v)
		case bool:
			if v {
				n = 1
			}
		case []byte, string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(asText(v)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("read integer: %w", err)
			}
			n = parsed
		default:
			return nil, fmt.Errorf("cannot read %T as integer", src)
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("value %d out of range for %d-bit integer", n, bits)
		}
		return n, nil
	}
}

func integerWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	default:
		return nil, fmt.Errorf("cannot write %T as integer", v)
	}
}

func booleanWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	default:
		return nil, fmt.Errorf("cannot write %T as boolean", v)
	}
}

func realReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case float32:
		return v, nil
	case float64:
		return float32(v), nil
	case []byte, string:
		f, err := strconv.ParseFloat(strings.TrimSpace(asText(v)), 32)
		if err != nil {
			return nil, fmt.Errorf("read real: %w", err)
		}
		return float32(f), nil
	default:
		return nil, fmt.Errorf("cannot read %T as real", src)
	}
}

// realWriteFunc accepts a float32 or the int64 holding its IEEE-754 bit
// pattern, which is how the engine carries REAL values in long slots.
func realWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(math.Float32frombits(uint32(x))), nil
	default:
		return nil, fmt.Errorf("cannot write %T as real", v)
	}
}

func doubleReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte, string:
		f, err := strconv.ParseFloat(strings.TrimSpace(asText(v)), 64)
		if err != nil {
			return nil, fmt.Errorf("read double: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot read %T as double", src)
	}
}

func doubleWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	default:
		return nil, fmt.Errorf("cannot write %T as double", v)
	}
}

func varcharReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte, string:
		return asText(v), nil
	default:
		return nil, fmt.Errorf("cannot read %T as varchar", src)
	}
}

// textReadFunc renders any scanned value as text. It backs forced-varchar
// mappings, where the native type is otherwise unknown to the engine.
func textReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte, string:
		return asText(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(timestampLayout), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// charReadFunc drops the trailing padding fixed-width columns carry.
func charReadFunc(src any) (any, error) {
	v, err := varcharReadFunc(src)
	if v == nil || err != nil {
		return v, err
	}
	return strings.TrimRight(v.(string), " \x00"), nil
}

// varcharWriteFunc writes text; it also accepts canonical JSON so JSON
// columns can reuse it.
func varcharWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case types.JSON:
		return string(x), nil
	default:
		return nil, fmt.Errorf("cannot write %T as varchar", v)
	}
}

func varbinaryReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot read %T as varbinary", src)
	}
}

func varbinaryWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	default:
		return nil, fmt.Errorf("cannot write %T as varbinary", v)
	}
}

// jsonReadFunc canonicalizes the stored JSON text.
func jsonReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte, string:
		b, err := jsoncanon.Canonicalize(asText(v))
		if err != nil {
			return nil, err
		}
		return types.JSON(b), nil
	default:
		return nil, fmt.Errorf("cannot read %T as json", src)
	}
}

func dateReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case []byte, string:
		t, err := time.Parse(dateLayout, strings.TrimSpace(asText(v)))
		if err != nil {
			return nil, fmt.Errorf("read date: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("cannot read %T as date", src)
	}
}

func dateWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.Format(dateLayout), nil
	default:
		return nil, fmt.Errorf("cannot write %T as date", v)
	}
}

func timeReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v, nil
	case time.Time:
		return sinceMidnight(v), nil
	case []byte, string:
		t, err := time.Parse(timeLayout, strings.TrimSpace(asText(v)))
		if err != nil {
			return nil, fmt.Errorf("read time: %w", err)
		}
		return sinceMidnight(t), nil
	default:
		return nil, fmt.Errorf("cannot read %T as time", src)
	}
}

func timeWriteFunc(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(x).Format(timeLayout), nil
	default:
		return nil, fmt.Errorf("cannot write %T as time", v)
	}
}

// timestampReadFunc returns the wall clock of the stored value as UTC.
func timestampReadFunc(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return wallClockUTC(v), nil
	case []byte, string:
		t, err := time.Parse(timestampLayout, strings.TrimSpace(asText(v)))
		if err != nil {
			return nil, fmt.Errorf("read timestamp: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("cannot read %T as timestamp", src)
	}
}

// timestampWriteFunc writes the wall clock as text so no driver can shift
// it into its own zone. A canonical (UTC) value is written as is; a value
// carrying another zone is an instant and is rendered in the session zone.
func timestampWriteFunc(s Session) WriteFunc {
	loc := s.location()
	return func(v any) (any, error) {
		switch x := v.(type) {
		case nil:
			return nil, nil
		case time.Time:
			if x.Location() != time.UTC {
				x = x.In(loc)
			}
			return x.Format(timestampLayout), nil
		default:
			return nil, fmt.Errorf("cannot write %T as timestamp", v)
		}
	}
}

func wallClockUTC(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.UTC)
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func asText(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}
