// Package jsoncanon normalizes JSON text into a canonical byte form so that
// two texts differing only in key order or whitespace produce identical
// bytes.
//
// Canonical form:
//   - exactly one JSON value, no insignificant whitespace
//   - object keys sorted by UTF-16 code units at every level
//   - numbers kept as their literal text: 1.0, 1.00 and 1e0 stay distinct,
//     unlike a parse-and-reserialize canonicalizer that folds them to one
//     double form
//   - strings escape only '"', '\' and control characters (\u00XX with
//     upper-case hex when there is no short escape); no HTML escaping
package jsoncanon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// ErrMalformedJSON is returned when the input is not a single valid JSON value.
var ErrMalformedJSON = errors.New("malformed json")

// Canonicalize parses text as a single JSON value and returns its canonical
// bytes. Trailing non-whitespace content is an error.
func Canonicalize(text string) ([]byte, error) {
	return CanonicalizeBytes([]byte(text))
}

// CanonicalizeBytes is Canonicalize for raw bytes.
func CanonicalizeBytes(in []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(in))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed(in, err)
	}
	// Only whitespace may follow the value.
	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected trailing token %v", tok)
		}
		return nil, malformed(in, err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(in)))
	if err := writeValue(buf, v); err != nil {
		return nil, malformed(in, err)
	}
	return buf.Bytes(), nil
}

// Fingerprint hashes canonical bytes. Equal canonical values always have
// equal fingerprints.
func Fingerprint(canonical []byte) uint64 {
	return xxh3.Hash(canonical)
}

func malformed(in []byte, cause error) error {
	return fmt.Errorf("%w: cannot convert '%s' to JSON: %v", ErrMalformedJSON, in, cause)
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		buf.WriteString(val.String())
	case string:
		writeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := writeValue(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported decoded type %T", v)
	}
	return nil
}

const hexDigits = "0123456789ABCDEF"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		buf.WriteString(s[start:i])
		switch c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0xF])
		}
		i++
		start = i
	}
	buf.WriteString(s[start:])
	buf.WriteByte('"')
}

// compareUTF16 orders strings by UTF-16 code units, which differs from byte
// order only for keys mixing supplementary characters with U+E000..U+FFFF.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
