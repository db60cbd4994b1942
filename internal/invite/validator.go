// Package invite gates sign-up behind a fixed set of access codes.
package invite

import (
	"crypto/subtle"
	"strings"
)

// Gate checks sign-up access codes. A nil or disabled Gate admits everyone.
type Gate struct {
	enabled bool
	codes   [][]byte
}

// New builds a Gate from the configured codes. Codes are case-insensitive
// and surrounding whitespace is ignored; blanks and duplicates are dropped.
func New(enabled bool, codes []string) *Gate {
	seen := make(map[string]struct{}, len(codes))
	g := &Gate{enabled: enabled}
	for _, code := range codes {
		norm := normalize(code)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		g.codes = append(g.codes, []byte(norm))
	}
	return g
}

// Required reports whether sign-up needs a code.
func (g *Gate) Required() bool {
	return g != nil && g.enabled
}

// Allow reports whether code admits a new account. Every configured code is
// compared so timing does not depend on which one matched.
func (g *Gate) Allow(code string) bool {
	if !g.Required() {
		return true
	}

	candidate := []byte(normalize(code))
	if len(candidate) == 0 {
		return false
	}

	found := 0
	for _, valid := range g.codes {
		if subtle.ConstantTimeEq(int32(len(candidate)), int32(len(valid))) == 1 {
			found |= subtle.ConstantTimeCompare(candidate, valid)
		}
	}
	return found == 1
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
