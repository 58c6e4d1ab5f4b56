// Package moderation masks blocked words in message content.
package moderation

import (
	"fmt"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter replaces the letters of a blocked word with a mask rune.
// Matching ignores case and leet substitutions, and skips punctuation and
// spacing inside a word, so "B.4.d g3r" matches "badger". A match only
// counts when it is not glued to other letters, and whitespace inside it
// is left alone. A nil *Filter masks nothing.
type Filter struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewFilter builds the automaton. It returns a nil filter when no word
// has anything left to match once folded.
func NewFilter(words []string, mask rune) (*Filter, error) {
	if unicode.IsSpace(mask) {
		return nil, fmt.Errorf("mask must not be a space")
	}
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if folded := fold(word).runes; len(folded) > 0 {
			patterns = append(patterns, folded)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("building blocked words automaton: %w", err)
	}
	return &Filter{matcher: m, mask: mask}, nil
}

// Mask returns content with blocked words masked and the words found,
// in order of appearance.
func (f *Filter) Mask(content string) (string, []string) {
	if f == nil || content == "" {
		return content, nil
	}
	text := fold(content)
	if len(text.runes) == 0 {
		return content, nil
	}

	var out []rune
	var found []string
	for _, term := range f.matcher.MultiPatternSearch(text.runes, false) {
		first, last, ok := text.span(term.Pos, len(term.Word))
		if !ok {
			continue
		}
		if out == nil {
			out = append([]rune(nil), text.original...)
		}
		for i := first; i <= last; i++ {
			if !unicode.IsSpace(out[i]) {
				out[i] = f.mask
			}
		}
		found = append(found, string(term.Word))
	}
	if out == nil {
		return content, nil
	}
	return string(out), found
}

// Language returns the ISO 639-1 code of the language text is written
// in, or an empty string when it cannot be told.
func Language(text string) string {
	return whatlanggo.Detect(text).Lang.Iso6391()
}

// folded is the searchable view of a text: letters and digits lowered
// and stripped of leet, each remembering where it sits in original.
type folded struct {
	original []rune
	runes    []rune
	at       []int
}

func fold(s string) folded {
	original := []rune(s)
	f := folded{
		original: original,
		runes:    make([]rune, 0, len(original)),
		at:       make([]int, 0, len(original)),
	}
	for i, r := range original {
		if !isWordRune(r) {
			continue
		}
		if plain, ok := leet[r]; ok {
			r = plain
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.at = append(f.at, i)
	}
	return f
}

// span maps a match of length n at pos back to the original runes. It
// reports false when the match starts or ends inside a longer word.
func (f folded) span(pos, n int) (first, last int, ok bool) {
	if pos < 0 || n <= 0 || pos+n > len(f.at) {
		return 0, 0, false
	}
	first, last = f.at[pos], f.at[pos+n-1]
	if first > 0 && unicode.IsLetter(f.original[first-1]) {
		return 0, 0, false
	}
	if last+1 < len(f.original) && unicode.IsLetter(f.original[last+1]) {
		return 0, 0, false
	}
	return first, last, true
}

var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// isWordRune tells whether r takes part in matching. Leet symbols do.
func isWordRune(r rune) bool {
	if _, ok := leet[r]; ok {
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
