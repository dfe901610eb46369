package matcher

import "strings"

// minPrefixWord is the shortest final word that may match the start of a
// longer word. Shorter words ("hi", "bid") must match a whole word so "hi"
// never matches "this", "his" or "high".
const minPrefixWord = 4

// ContainsPhrase reports whether the normalised phrase occurs in the
// normalised text starting at a word boundary. When the phrase's last word
// has at least minPrefixWord bytes the occurrence may continue into a longer
// word ("deck" in "decks", "kitchen remodel" in "kitchen remodeling").
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	haystack := " " + text
	needle := " " + phrase
	last := phrase[strings.LastIndexByte(phrase, ' ')+1:]
	if len(last) >= minPrefixWord {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(haystack+" ", needle+" ")
}
