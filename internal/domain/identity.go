package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Identity is the canonical professor name used as the join key across sources.
type Identity string

// Normalize maps any raw name (path segment, CLI argument, stored name) to its canonical form.
// Hyphens stand in for spaces, whitespace runs collapse, and the result is NFC-composed.
// Case is preserved because the review store joins on the stored display name.
func Normalize(raw string) Identity {
	composed := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(composed))
	pendingSpace := false
	for _, r := range composed {
		if r == '-' || unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	return Identity(b.String())
}

// String returns the canonical name.
func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether normalization left nothing usable.
func (i Identity) IsZero() bool {
	return i == ""
}

// DisplayName is the name handed to collection jobs.
func (i Identity) DisplayName() string {
	return string(i)
}
