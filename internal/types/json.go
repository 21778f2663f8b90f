package types

// JSON is a canonical JSON value: UTF-8 text with object keys sorted and no
// insignificant whitespace. Two JSON values are equal iff their bytes are.
type JSON []byte

// String returns the canonical text.
func (j JSON) String() string { return string(j) }

// Equal reports byte equality of two canonical values.
func (j JSON) Equal(o JSON) bool { return string(j) == string(o) }
