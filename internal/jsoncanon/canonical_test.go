package jsoncanon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeBasic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"null", "null", "null"},
		{"true", " true ", "true"},
		{"string", `"hello"`, `"hello"`},
		{"integer", "42", "42"},
		{"number literal kept", "1.50e3", "1.50e3"},
		{"trailing zeros not folded", `{"a":1.00,"b":1e2}`, `{"a":1.00,"b":1e2}`},
		{"big integer kept", "123456789012345678901234567890", "123456789012345678901234567890"},
		{"empty object", "{ }", "{}"},
		{"empty array", "[ ]", "[]"},
		{"sorted keys", `{"b":1,"a":2}`, `{"a":2,"b":1}`},
		{"nested sorted keys", `{"z":{"y":1,"x":[{"d":1,"c":2}]},"a":null}`, `{"a":null,"z":{"x":[{"c":2,"d":1}],"y":1}}`},
		{"array order kept", `[3, 1, 2]`, `[3,1,2]`},
		{"no html escaping", `{"k":"<a&b>"}`, `{"k":"<a&b>"}`},
		{"unicode escape decoded", `"\u0041\u00e9"`, `"Aé"`},
		{"control chars escaped", `"a\u0001b\n"`, `"a\u0001b\n"`},
		{"control escape upper-case hex", `"\u001f\u001B"`, `"\u001F\u001B"`},
		{"quote and backslash", `"q\"\\"`, `"q\"\\"`},
		{"duplicate key last wins", `{"a":1,"a":2}`, `{"a":2}`},
		{"trailing whitespace", "{\"a\":1} \n\t", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCanonicalizeKeyOrderAndWhitespaceInvariance(t *testing.T) {
	variants := []string{
		`{"name":"x","tags":["a","b"],"meta":{"v":1,"k":true}}`,
		`{ "meta" : { "k" : true , "v" : 1 } , "tags" : [ "a" , "b" ] , "name" : "x" }`,
		"{\n\t\"tags\": [\"a\", \"b\"],\n\t\"name\": \"x\",\n\t\"meta\": {\"v\": 1, \"k\": true}\n}",
	}

	first, err := Canonicalize(variants[0])
	require.NoError(t, err)
	for _, v := range variants[1:] {
		got, err := Canonicalize(v)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(got))
		assert.Equal(t, Fingerprint(first), Fingerprint(got))
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	once, err := Canonicalize(`{"b":[1,{"d":2,"c":3}],"a":"x"}`)
	require.NoError(t, err)
	twice, err := CanonicalizeBytes(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCanonicalizeUTF16KeyOrdering(t *testing.T) {
	// U+10000 encodes as surrogates 0xD800 0xDC00 and sorts before U+E000.
	got, err := Canonicalize(`{"` + "\uE000" + `":1,"𐀀":2}`)
	require.NoError(t, err)
	assert.Equal(t, `{"𐀀":2,"`+"\uE000"+`":1}`, string(got))
}

func TestCanonicalizeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"trailing tokens", `{"a":1} trailing`},
		{"unquoted key", `{a:1}`},
		{"second value", `{"a":1} {"b":2}`},
		{"trailing number", `1 2`},
		{"stray close", `{"a":1}}`},
		{"empty", ``},
		{"whitespace only", "   "},
		{"truncated", `{"a":`},
		{"leading zero", `01`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedJSON)
			assert.Nil(t, got)
			assert.True(t, strings.Contains(err.Error(), "cannot convert '"+tt.input+"' to JSON"), err.Error())
		})
	}
}

func BenchmarkCanonicalize(b *testing.B) {
	in := []byte(`{"z":1,"y":[1,2,3,{"b":"x","a":"y"}],"x":{"q":true,"p":null},"w":"text with \"quotes\""}`)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := CanonicalizeBytes(in); err != nil {
			b.Fatal(err)
		}
	}
}
