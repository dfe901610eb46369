package kb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate checks entry well-formedness: at least one non-blank pattern, a
// non-blank response, and buttons with text and exactly one of url/action.
// Duplicate patterns are data bugs reported by FindDuplicates, not load errors.
func Validate(c *Corpus) error {
	var errs []error
	for i, e := range c.entries {
		ref := c.refs[i]
		if err := validateEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}

func validateEntry(e Entry) error {
	if len(e.Patterns) == 0 {
		return errors.New("entry has no patterns")
	}
	for i, p := range e.Patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("pattern %d is blank", i)
		}
	}
	if strings.TrimSpace(e.Response) == "" {
		return errors.New("entry has no response")
	}
	switch e.Type {
	case TypeNone, TypeEndChat:
	default:
		return fmt.Errorf("unknown entry type %q", e.Type)
	}
	for i, b := range e.Buttons {
		if strings.TrimSpace(b.Text) == "" {
			return fmt.Errorf("button %d has no text", i)
		}
		hasURL, hasAction := b.URL != "", b.Action != ActionNone
		if hasURL == hasAction {
			return fmt.Errorf("button %q must set exactly one of url or action", b.Text)
		}
		if hasAction && !knownActions[b.Action] {
			return fmt.Errorf("button %q has unknown action %q", b.Text, b.Action)
		}
	}
	return nil
}

// Duplicate is a pattern that appears in more than one place.
type Duplicate struct {
	Pattern string `json:"pattern"`
	Refs    []Ref  `json:"refs"`
}

// FindDuplicates reports every pattern seen more than once across the corpus.
// Patterns are compared case-insensitively with whitespace collapsed, since
// that is how the matcher sees them. Results are ordered by first occurrence.
func FindDuplicates(c *Corpus) []Duplicate {
	seen := make(map[string][]Ref)
	var order []string
	for i, e := range c.entries {
		for _, p := range e.Patterns {
			key := patternKey(p)
			refs := seen[key]
			// A pattern repeated inside one entry counts once per occurrence.
			if len(refs) == 0 {
				order = append(order, key)
			}
			seen[key] = append(refs, c.refs[i])
		}
	}

	var dups []Duplicate
	for _, key := range order {
		if refs := seen[key]; len(refs) > 1 {
			dups = append(dups, Duplicate{Pattern: key, Refs: refs})
		}
	}
	return dups
}

func patternKey(p string) string {
	return strings.ToLower(strings.Join(strings.Fields(p), " "))
}

// SourceStats summarises one source for the count report.
type SourceStats struct {
	Source   Source `json:"source"`
	Entries  int    `json:"entries"`
	Patterns int    `json:"patterns"`
	Unique   int    `json:"unique_patterns"`
}

// Stats returns per-source totals followed by a combined row with Source "all".
func Stats(c *Corpus) []SourceStats {
	per := make(map[Source]*SourceStats, len(Sources))
	uniq := make(map[Source]map[string]bool, len(Sources))
	allUniq := make(map[string]bool)
	total := SourceStats{Source: "all"}

	for _, src := range Sources {
		per[src] = &SourceStats{Source: src}
		uniq[src] = make(map[string]bool)
	}
	for i, e := range c.entries {
		src := c.refs[i].Source
		per[src].Entries++
		total.Entries++
		for _, p := range e.Patterns {
			key := patternKey(p)
			per[src].Patterns++
			total.Patterns++
			uniq[src][key] = true
			allUniq[key] = true
		}
	}

	out := make([]SourceStats, 0, len(Sources)+1)
	for _, src := range Sources {
		s := per[src]
		s.Unique = len(uniq[src])
		out = append(out, *s)
	}
	total.Unique = len(allUniq)
	return append(out, total)
}

// SortedPatterns returns every distinct normalised pattern, sorted.
func SortedPatterns(c *Corpus) []string {
	set := make(map[string]bool)
	for _, e := range c.entries {
		for _, p := range e.Patterns {
			set[patternKey(p)] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
