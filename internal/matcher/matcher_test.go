package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxenbot/internal/kb"
)

func embeddedMatcher(t *testing.T) *Matcher {
	t.Helper()
	c, err := kb.LoadEmbedded()
	require.NoError(t, err)
	return New(c)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello,   WORLD! ", "hello world"},
		{"That's all", "that is all"},
		{"I’m ready", "i am ready"},
		{"Café build-out", "cafe build out"},
		{"walk-in\tshower", "walk in shower"},
		{"???", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestMatch_EmbeddedCorpus(t *testing.T) {
	m := embeddedMatcher(t)

	tests := []struct {
		name      string
		query     string
		source    kb.Source
		pattern   string
		matchType MatchType
	}{
		{"exact greeting", "Hello!", kb.SourceCommon, "hello", MatchExact},
		{"longest pattern beats generic cost", "How much does a kitchen remodel cost?", kb.SourceResidential, "kitchen remodel", MatchPhrase},
		{"longer of two residential patterns", "I need a new roof and new windows", kb.SourceResidential, "new windows", MatchPhrase},
		{"accents and hyphens", "Do you do café build-outs? café build out", kb.SourceCommercial, "cafe build out", MatchPhrase},
		{"contraction in pattern", "that's all", kb.SourceCommon, "that is all", MatchExact},
		{"commercial", "we need an office renovation next spring", kb.SourceCommercial, "office renovation", MatchPhrase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := m.Match(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.source, res.Ref.Source)
			assert.Equal(t, tt.pattern, res.Pattern)
			assert.Equal(t, tt.matchType, res.Type)
			assert.NotEmpty(t, res.Entry.Response)
		})
	}
}

func TestMatch_EndChatType(t *testing.T) {
	m := embeddedMatcher(t)
	res, ok := m.Match("ok goodbye")
	require.True(t, ok)
	assert.Equal(t, kb.TypeEndChat, res.Entry.Type)
}

func TestMatch_WordBoundaries(t *testing.T) {
	m := embeddedMatcher(t)

	// "hi" must not match inside "this", "high" or "his"
	_, ok := m.Match("this is his high ceiling")
	assert.False(t, ok)
}

func TestMatch_Inflections(t *testing.T) {
	m := embeddedMatcher(t)

	tests := []struct {
		query   string
		pattern string
	}{
		{"kitchen remodeling", "kitchen remodel"},
		{"I need kitchen remodeling", "kitchen remodel"},
		{"roofing", "roof"},
		{"new kitchens", "new kitchen"},
		{"do you build decks?", "deck"},
		{"bathroom remodeling quote please", "bathroom remodel"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, ok := m.Match(tt.query)
			require.True(t, ok)
			assert.Equal(t, kb.SourceResidential, res.Ref.Source)
			assert.Equal(t, tt.pattern, res.Pattern)
			assert.Equal(t, MatchPhrase, res.Type)
		})
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"cost of a deck", "deck", true},
		{"two decks", "deck", true},
		{"decking boards", "deck", true},
		{"kitchen remodeling soon", "kitchen remodel", true},
		{"the rebuild", "build", false},
		{"roofers wanted", "roof", true},
		{"installation date", "install", true},
		{"his house", "hi", false},
		{"hi there", "hi", true},
		{"kitchens remodel", "kitchen remodel", false},
		{"bids please", "bid", false},
		{"a bid please", "bid", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPhrase(tt.text, tt.phrase), "%q in %q", tt.phrase, tt.text)
	}
}

func TestMatch_NoMatch(t *testing.T) {
	m := embeddedMatcher(t)

	for _, q := range []string{"", "   ", "!!!", "qwerty zxcvb"} {
		_, ok := m.Match(q)
		assert.False(t, ok, "query %q", q)
	}
}

func TestMatch_TieGoesToEarlierEntry(t *testing.T) {
	c, err := kb.NewCorpus(map[kb.Source][]kb.Entry{
		kb.SourceResidential: {{Patterns: []string{"deck"}, Response: "decks"}},
		kb.SourceCommon:      {{Patterns: []string{"cost"}, Response: "pricing"}},
	})
	require.NoError(t, err)
	m := New(c)

	res, ok := m.Match("what would a cost for a deck be")
	require.True(t, ok)
	assert.Equal(t, "decks", res.Entry.Response)

	res, ok = m.Match("cost of a deck")
	require.True(t, ok)
	assert.Equal(t, "decks", res.Entry.Response, "position in message does not matter")
}

func TestMatch_ExactBeatsLongerPhrase(t *testing.T) {
	c, err := kb.NewCorpus(map[kb.Source][]kb.Entry{
		kb.SourceResidential: {{Patterns: []string{"roof"}, Response: "phrase"}},
		kb.SourceCommon:      {{Patterns: []string{"new roof"}, Response: "exact"}},
	})
	require.NoError(t, err)
	m := New(c)

	res, ok := m.Match("New roof")
	require.True(t, ok)
	assert.Equal(t, "exact", res.Entry.Response)
	assert.Equal(t, MatchExact, res.Type)
}

func TestMatch_ResultIsACopy(t *testing.T) {
	m := embeddedMatcher(t)
	res, ok := m.Match("hello")
	require.True(t, ok)
	res.Entry.Patterns[0] = "changed"

	again, _ := m.Match("hello")
	assert.Equal(t, "hello", again.Entry.Patterns[0])
}
