// Package matcher maps a user message to the best knowledge-base entry.
//
// Matching order:
//  1. Exact: the whole normalised message equals a normalised pattern.
//  2. Phrase: a normalised pattern appears in the message starting at a word
//     (see ContainsPhrase). "deck" matches "decks" and "kitchen remodel"
//     matches "kitchen remodeling", but "hi" does not match "this" or "high".
//
// Within each tier the longest pattern wins; ties go to the entry that comes
// first in corpus order (residential, commercial, common).
package matcher

import (
	"arxenbot/internal/kb"
)

// MatchType reports how an entry was matched.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchPhrase MatchType = "phrase"
)

// Result is a successful match.
type Result struct {
	Entry   kb.Entry
	Ref     kb.Ref
	Pattern string
	Type    MatchType
}

type patternEntry struct {
	raw   string
	entry int
}

// Matcher is immutable once built and safe for concurrent use.
type Matcher struct {
	corpus   *kb.Corpus
	patterns []patternEntry
	exact    map[string]int
}

// New precomputes normalised patterns for every entry in c.
func New(c *kb.Corpus) *Matcher {
	m := &Matcher{
		corpus: c,
		exact:  make(map[string]int),
	}
	for i, e := range c.Entries() {
		for _, p := range e.Patterns {
			normalized := Normalize(p)
			if normalized == "" {
				continue
			}
			m.patterns = append(m.patterns, patternEntry{
				raw:   normalized,
				entry: i,
			})
			// first entry in corpus order owns an exact pattern
			if _, exists := m.exact[normalized]; !exists {
				m.exact[normalized] = i
			}
		}
	}
	return m
}

// Corpus returns the corpus the matcher was built from.
func (m *Matcher) Corpus() *kb.Corpus { return m.corpus }

// Match returns the best entry for query. A blank query or one no pattern
// matches returns false; that is the signal to use a fallback.
func (m *Matcher) Match(query string) (Result, bool) {
	normalized := Normalize(query)
	if normalized == "" {
		return Result{}, false
	}

	if i, ok := m.exact[normalized]; ok {
		return m.result(i, normalized, MatchExact), true
	}

	best := -1
	for j, p := range m.patterns {
		if !ContainsPhrase(normalized, p.raw) {
			continue
		}
		if best < 0 || better(p, m.patterns[best]) {
			best = j
		}
	}
	if best < 0 {
		return Result{}, false
	}
	p := m.patterns[best]
	return m.result(p.entry, p.raw, MatchPhrase), true
}

// better reports whether a should replace the current best b.
func better(a, b patternEntry) bool {
	if len(a.raw) != len(b.raw) {
		return len(a.raw) > len(b.raw)
	}
	return a.entry < b.entry
}

func (m *Matcher) result(i int, pattern string, t MatchType) Result {
	e, ref := m.corpus.Entry(i)
	return Result{Entry: e, Ref: ref, Pattern: pattern, Type: t}
}
