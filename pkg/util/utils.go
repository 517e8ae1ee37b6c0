package util

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeAddr returns the upper-case form of a MAC address, used as a map key
func NormalizeAddr(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

func AddrEqualAddr(a string, b string) bool {
	return NormalizeAddr(a) == NormalizeAddr(b)
}

// NormalizeUUID returns the canonical lower-case, dashed form of a 128-bit UUID.
// Strings that do not parse as one (16-bit short forms) are lower-cased as is.
func NormalizeUUID(s string) string {
	u, err := uuid.Parse(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return u.String()
}

func UuidEqualStr(a string, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// Clamp01 limits v to [0, 1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
