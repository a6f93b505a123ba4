// Package ident provides canonical identifier normalization shared by every
// stage of the compiler. Two identifiers that differ only in case, leading/
// trailing whitespace, or runs of whitespace/underscores must compare equal
// and hash identically, while the original spelling is preserved for
// display.
package ident

import (
	"bytes"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical is a case- and whitespace-normalized interned string. Equality
// and map/set membership must always be checked on the Canonical form, never
// on the original spelling.
type Canonical string

// Ident pairs the canonical form of a name with its original spelling, so
// that display (error messages, exported formats) can show what the modeler
// actually typed while every internal lookup uses Canonical.
type Ident struct {
	Canonical Canonical
	Original  string
}

// bomUTF8 is the UTF-8 byte order mark, stripped before normalization.
var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// New canonicalizes raw and returns the paired Ident. Canonicalization is:
//  1. Strip a leading UTF-8 BOM.
//  2. Apply Unicode NFC normalization so encoding variations of the same
//     text canonicalize identically.
//  3. Lowercase.
//  4. Trim leading/trailing whitespace.
//  5. Collapse runs of whitespace and underscores to a single '_'.
//
// Quoted-identifier boundaries (the surrounding quote characters) are not
// part of raw; callers strip them before calling New and re-add them only
// when rendering Original back into equation text.
func New(raw string) Ident {
	normalized := normalizeBytes([]byte(raw))
	return Ident{
		Canonical: Canonical(normalized),
		Original:  raw,
	}
}

// Canon is a convenience for callers that only need the canonical form, not
// the paired Original spelling.
func Canon(raw string) Canonical {
	return Canonical(normalizeBytes([]byte(raw)))
}

func normalizeBytes(src []byte) string {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	lowered := strings.ToLower(string(src))
	return collapseWhitespaceAndUnderscores(strings.TrimSpace(lowered))
}

// collapseWhitespaceAndUnderscores turns every maximal run of whitespace or
// '_' characters into a single '_'.
func collapseWhitespaceAndUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !inRun {
				b.WriteByte('_')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// String implements fmt.Stringer, returning the original spelling (the form
// callers usually want to display).
func (id Ident) String() string {
	return id.Original
}

// Equal reports whether two Idents denote the same canonical name.
func (id Ident) Equal(other Ident) bool {
	return id.Canonical == other.Canonical
}

// ReservedPrefix is the LTM synthetic-variable namespace marker: a dollar
// sign followed by U+205A (TWO DOT PUNCTUATION). Neither character is a
// valid bare-identifier character for internal/lexer, so synthetic names
// appear in equation text only as quoted identifiers. Any canonical identifier
// beginning with ReservedPrefix is LTM-generated and must never collide with
// a user name.
const ReservedPrefix = "$⁚"

// Arrow is the `from->to` separator used inside synthetic link-score names.
const Arrow = "→"

// IsSynthetic reports whether a canonical identifier is in the LTM-reserved
// namespace.
func IsSynthetic(c Canonical) bool {
	return strings.HasPrefix(string(c), ReservedPrefix)
}

// LinkScoreName builds the canonical synthetic name for the link score of
// edge from->to, e.g. "$⁚link→from→to".
func LinkScoreName(from, to Canonical) Canonical {
	return Canonical(ReservedPrefix + "link" + Arrow + string(from) + Arrow + string(to))
}

// LoopScoreName builds the canonical synthetic name for a loop's absolute
// score.
func LoopScoreName(loopID string) Canonical {
	return Canonical(ReservedPrefix + "loop" + Arrow + loopID)
}

// RelLoopScoreName builds the canonical synthetic name for a loop's
// relative score.
func RelLoopScoreName(loopID string) Canonical {
	return Canonical(ReservedPrefix + "rel" + Arrow + loopID)
}
