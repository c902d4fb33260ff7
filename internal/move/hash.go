package move

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainLibrary separates library hashes from any other sha256 use.
const DomainLibrary = "combo/library/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DefinitionsHash returns a stable identity for a move library.
// Order matters: matchers run in declaration order, so two libraries
// with the same moves in a different order hash differently.
func DefinitionsHash(defs []Definition) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, d := range defs {
		steps := make([]Step, len(d.Steps))
		for i, s := range d.Steps {
			accepted := make([]string, len(s.Accepted))
			for j, sym := range s.Accepted {
				accepted[j] = NormalizeSymbol(sym)
			}
			steps[i] = Step{Accepted: accepted, MinDelayMs: s.MinDelayMs, MaxDelayMs: s.MaxDelayMs}
		}
		if err := enc.Encode(Definition{Name: NormalizeSymbol(d.Name), Steps: steps}); err != nil {
			return "", fmt.Errorf("hash definition %q: %w", d.Name, err)
		}
	}
	return hashWithDomain(DomainLibrary, buf.Bytes()), nil
}
