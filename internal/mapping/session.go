package mapping

import (
	"fmt"
	"strings"
	"time"
)

// DecimalMapping selects how decimals wider than the engine's maximum
// precision are handled.
type DecimalMapping int

const (
	// DecimalStrict leaves over-wide decimals unmapped.
	DecimalStrict DecimalMapping = iota
	// DecimalAllowOverflow clamps over-wide decimals to the maximum
	// precision and rounds values with the session rounding mode.
	DecimalAllowOverflow
)

func (m DecimalMapping) String() string {
	if m == DecimalAllowOverflow {
		return "allow_overflow"
	}
	return "strict"
}

// ParseDecimalMapping accepts "strict" or "allow_overflow" in any case.
func ParseDecimalMapping(s string) (DecimalMapping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return DecimalStrict, nil
	case "allow_overflow":
		return DecimalAllowOverflow, nil
	default:
		return DecimalStrict, fmt.Errorf("unknown decimal mapping %q", s)
	}
}

// RoundingMode names a decimal rounding rule.
type RoundingMode int

const (
	RoundUnnecessary RoundingMode = iota
	RoundHalfUp
	RoundHalfEven
	RoundHalfDown
	RoundUp
	RoundDown
	RoundCeiling
	RoundFloor
)

var roundingModeNames = map[RoundingMode]string{
	RoundUnnecessary: "UNNECESSARY",
	RoundHalfUp:      "HALF_UP",
	RoundHalfEven:    "HALF_EVEN",
	RoundHalfDown:    "HALF_DOWN",
	RoundUp:          "UP",
	RoundDown:        "DOWN",
	RoundCeiling:     "CEILING",
	RoundFloor:       "FLOOR",
}

func (m RoundingMode) String() string {
	if s, ok := roundingModeNames[m]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseRoundingMode parses names such as HALF_UP (case-insensitive).
func ParseRoundingMode(s string) (RoundingMode, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range roundingModeNames {
		if name == want {
			return m, nil
		}
	}
	return RoundUnnecessary, fmt.Errorf("unknown rounding mode %q", s)
}

// Session is the read-only per-session configuration consulted by every
// translation call. It is built once and shared without synchronization.
type Session struct {
	DecimalMapping      DecimalMapping
	DecimalDefaultScale int
	RoundingMode        RoundingMode

	// ForcedVarchar lists native type names (case-insensitive) that are
	// always surfaced as unbounded varchar.
	ForcedVarchar []string

	// TimeZone renders zoned timestamp values before their wall clock is
	// written. Canonical (UTC) values are written unchanged. Nil means UTC.
	TimeZone *time.Location
}

// DefaultSession returns the defaults of a freshly configured catalog.
func DefaultSession() Session {
	return Session{
		DecimalMapping:      DecimalStrict,
		DecimalDefaultScale: 0,
		RoundingMode:        RoundHalfUp,
		TimeZone:            time.UTC,
	}
}

func (s Session) location() *time.Location {
	if s.TimeZone == nil {
		return time.UTC
	}
	return s.TimeZone
}

func (s Session) forcesVarchar(d Descriptor) bool {
	for _, name := range s.ForcedVarchar {
		if d.hasTypeName(strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
