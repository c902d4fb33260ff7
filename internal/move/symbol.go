package move

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AlternativeSeparator splits the accepted symbols of one step.
const AlternativeSeparator = "|"

// NormalizeSymbol trims surrounding whitespace and applies NFC normalization,
// so that composed and decomposed forms of a glyph compare equal.
func NormalizeSymbol(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseAlternatives splits an input expression such as "A|B" into its
// normalized symbols. Empty alternatives are rejected.
func ParseAlternatives(input string) ([]string, error) {
	parts := strings.Split(input, AlternativeSeparator)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		sym := NormalizeSymbol(p)
		if sym == "" {
			return nil, fmt.Errorf("alternative %d of %q is empty", i, input)
		}
		out = append(out, sym)
	}
	return out, nil
}

// JoinAlternatives is the inverse of ParseAlternatives.
func JoinAlternatives(symbols []string) string {
	return strings.Join(symbols, AlternativeSeparator)
}
