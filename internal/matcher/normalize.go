package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var contractions = map[string]string{
	"i'm": "i am", "i've": "i have", "i'll": "i will", "i'd": "i would",
	"can't": "cannot", "won't": "will not", "don't": "do not",
	"doesn't": "does not", "didn't": "did not", "isn't": "is not",
	"aren't": "are not", "wasn't": "was not", "weren't": "were not",
	"hasn't": "has not", "haven't": "have not", "hadn't": "had not",
	"wouldn't": "would not", "shouldn't": "should not", "couldn't": "could not",
	"you're": "you are", "you've": "you have", "you'll": "you will", "you'd": "you would",
	"he's": "he is", "she's": "she is", "it's": "it is", "that's": "that is",
	"what's": "what is", "where's": "where is", "who's": "who is",
	"there's": "there is", "we're": "we are", "we've": "we have",
	"they're": "they are", "they've": "they have", "let's": "let us",
}

// Normalize prepares text for matching:
//   - Unicode NFKD with combining marks dropped (café -> cafe)
//   - Lowercase
//   - Contraction expansion
//   - Every non letter/digit becomes a space
//   - Whitespace collapsed
//
// Patterns and queries go through the same function, so a pattern matches a
// query when its normalised words appear contiguously in the normalised query.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Mn, r):
			// drop accents left behind by NFKD
		case r == '’' || r == '‘':
			b.WriteRune('\'')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	words := strings.Fields(b.String())
	for i, word := range words {
		if expansion, ok := contractions[strings.Trim(word, ".,!?;:\"()")]; ok {
			words[i] = expansion
		}
	}
	text = strings.Join(words, " ")

	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)

	return strings.Join(strings.Fields(text), " ")
}
