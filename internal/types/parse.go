package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a type written the way String renders it, e.g. "bigint",
// "varchar(20)" or "decimal(10, 2)". Names are case-insensitive and inner
// whitespace is collapsed.
func Parse(s string) (Type, error) {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	var args []int
	if i := strings.IndexByte(name, '('); i >= 0 {
		if !strings.HasSuffix(name, ")") {
			return Type{}, fmt.Errorf("types: unbalanced parameters in %q", s)
		}
		for _, a := range strings.Split(name[i+1:len(name)-1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return Type{}, fmt.Errorf("types: bad parameter in %q: %w", s, err)
			}
			args = append(args, n)
		}
		name = strings.TrimSpace(name[:i])
	}

	switch name {
	case "decimal":
		switch len(args) {
		case 1:
			return Decimal(args[0], 0)
		case 2:
			return Decimal(args[0], args[1])
		}
		return Type{}, fmt.Errorf("types: decimal takes precision and optional scale: %q", s)
	case "varchar":
		switch len(args) {
		case 0:
			return UnboundedVarchar, nil
		case 1:
			return Varchar(args[0]), nil
		}
	case "char":
		if len(args) == 1 && args[0] > 0 {
			return Char(args[0]), nil
		}
	default:
		if len(args) > 0 {
			break
		}
		for k, n := range kindNames {
			if n == name && k != KindDecimal {
				return Type{Kind: k}, nil
			}
		}
		return Type{}, fmt.Errorf("types: unknown type %q", s)
	}
	return Type{}, fmt.Errorf("types: bad parameters for %s: %q", name, s)
}
