// Package censor masks blocked words in guest messages before they enter the
// ledger.
package censor

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// DefaultMask replaces each rune of a blocked word.
const DefaultMask = '*'

// Masker finds blocked words case-insensitively, ignoring punctuation,
// spacing, accents and common digit substitutions ("h0la" matches "hola"),
// and overwrites the matching letters of the original text. Separators
// inside a match are left alone.
// A Masker with no words returns text unchanged.
type Masker struct {
	machine *goahocorasick.Machine
	mask    rune
}

// New builds a Masker for words. Blank entries are ignored.
func New(words []string, mask rune) (*Masker, error) {
	if mask == 0 {
		mask = DefaultMask
	}

	patterns := lo.Uniq(lo.FilterMap(words, func(w string, _ int) (string, bool) {
		folded, _ := fold(w)
		return string(folded), len(folded) > 0
	}))
	if len(patterns) == 0 {
		return &Masker{mask: mask}, nil
	}
	slices.Sort(patterns)

	m := new(goahocorasick.Machine)
	if err := m.Build(lo.Map(patterns, func(p string, _ int) []rune { return []rune(p) })); err != nil {
		return nil, fmt.Errorf("building blocked word matcher: %w", err)
	}
	return &Masker{machine: m, mask: mask}, nil
}

// ParseWords splits a comma separated list as found in configuration.
func ParseWords(list string) []string {
	return lo.Compact(lo.Map(strings.Split(list, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	}))
}

// Enabled reports whether any words are blocked.
func (m *Masker) Enabled() bool {
	return m != nil && m.machine != nil
}

// Mask returns text with every blocked word overwritten and whether anything
// was replaced.
func (m *Masker) Mask(text string) (string, bool) {
	if !m.Enabled() {
		return text, false
	}

	folded, index := fold(text)
	if len(folded) == 0 {
		return text, false
	}
	hits := m.machine.MultiPatternSearch(folded, false)
	if len(hits) == 0 {
		return text, false
	}

	out := []rune(text)
	for _, hit := range hits {
		end := hit.Pos + len(hit.Word)
		if hit.Pos < 0 || end > len(index) {
			continue
		}
		for _, i := range index[hit.Pos:end] {
			out[i] = m.mask
		}
	}
	return string(out), true
}

// fold lowers and simplifies s for matching, dropping separators. index maps
// each folded rune back to its rune offset in s.
func fold(s string) (folded []rune, index []int) {
	for i, r := range []rune(s) {
		r = simplify(unicode.ToLower(r))
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, r)
		index = append(index, i)
	}
	return folded, index
}

func simplify(r rune) rune {
	switch r {
	case '0':
		return 'o'
	case '1':
		return 'i'
	case '3':
		return 'e'
	case '4', '@':
		return 'a'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	case 'á', 'à', 'ä', 'â':
		return 'a'
	case 'é', 'è', 'ë', 'ê':
		return 'e'
	case 'í', 'ì', 'ï', 'î':
		return 'i'
	case 'ó', 'ò', 'ö', 'ô':
		return 'o'
	case 'ú', 'ù', 'ü', 'û':
		return 'u'
	}
	return r
}
