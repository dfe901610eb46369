// Package kb holds the chatbot knowledge base: ordered pattern -> response entries
// partitioned into residential, commercial and common sources. A loaded Corpus is
// immutable; reloading produces a new Corpus.
package kb

import (
	"fmt"
	"strings"
)

// Source identifies which knowledge-base file an entry came from.
type Source string

const (
	SourceResidential Source = "residential"
	SourceCommercial  Source = "commercial"
	SourceCommon      Source = "common"
)

// Sources lists the sources in corpus order. Matching ties resolve toward the
// earlier source.
var Sources = []Source{SourceResidential, SourceCommercial, SourceCommon}

// EntryType alters client behaviour for an entry. Most entries have none.
type EntryType string

const (
	TypeNone    EntryType = ""
	TypeEndChat EntryType = "end-chat"
)

// Action is a client-side button action resolved through an explicit dispatch table.
type Action string

const (
	ActionNone         Action = ""
	ActionOpenEstimate Action = "open-estimate"
	ActionCallOffice   Action = "call-office"
	ActionEmailOffice  Action = "email-office"
	ActionRestartChat  Action = "restart-chat"
	ActionEndChat      Action = "end-chat"
)

var knownActions = map[Action]bool{
	ActionOpenEstimate: true,
	ActionCallOffice:   true,
	ActionEmailOffice:  true,
	ActionRestartChat:  true,
	ActionEndChat:      true,
}

// ParseAction converts a raw string into a known Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !knownActions[a] {
		return ActionNone, fmt.Errorf("unknown button action %q", s)
	}
	return a, nil
}

// Button is a call-to-action rendered under a response. Exactly one of URL or
// Action is set.
type Button struct {
	Text   string `yaml:"text" json:"text"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Action Action `yaml:"action,omitempty" json:"action,omitempty"`
}

// Entry is one pattern -> response record.
type Entry struct {
	Patterns []string  `yaml:"patterns" json:"patterns"`
	Response string    `yaml:"response" json:"response"`
	Buttons  []Button  `yaml:"buttons,omitempty" json:"buttons,omitempty"`
	Type     EntryType `yaml:"type,omitempty" json:"type,omitempty"`
}

// Ref locates an entry within the corpus.
type Ref struct {
	Source Source `json:"source"`
	Index  int    `json:"index"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s[%d]", r.Source, r.Index)
}

// file is the on-disk layout of a knowledge-base YAML file.
type file struct {
	Entries []Entry `yaml:"entries"`
}
