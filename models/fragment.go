package models

import (
	"strings"
	"unicode"
)

// fingerprintLen is how many characters of normalized text identify a
// fragment during fusion. A fixed-length prefix rather than a hash: fragments
// that open near-identically are treated as duplicates on purpose.
const fingerprintLen = 64

// Fragment is one passage of source text returned by a similarity search.
type Fragment struct {
	Text     string                 `json:"text"`
	Distance float64                `json:"distance,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Fingerprint derives the dedup key for this fragment: lowercase, whitespace
// collapsed to single spaces, truncated to a fixed prefix.
func (f Fragment) Fingerprint() string {
	var b strings.Builder
	lastSpace := true
	for _, r := range f.Text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		lastSpace = false
		if b.Len() >= fingerprintLen {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
