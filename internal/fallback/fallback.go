// Package fallback chooses a canned reply when no knowledge-base entry matches.
//
// Rules are checked in order and the first hit wins:
//  1. frustration: a frustration cue in the message, or the message repeats one
//     of the last RepeatWindow messages in the history
//  2. project-inquiry: a cost or project cue in the message
//  3. default
//
// Select is a pure function of its inputs; the caller owns the history.
package fallback

import (
	"arxenbot/internal/kb"
	"arxenbot/internal/matcher"
)

// Category names a fallback bucket.
type Category string

const (
	CategoryFrustration    Category = "frustration"
	CategoryProjectInquiry Category = "project-inquiry"
	CategoryDefault        Category = "default"
)

// RepeatWindow is how many recent history messages are checked for a repeat.
const RepeatWindow = 3

// Fallback is the reply for a category.
type Fallback struct {
	Category Category    `json:"category"`
	Response string      `json:"response"`
	Buttons  []kb.Button `json:"buttons,omitempty"`
}

type rule struct {
	category Category
	cues     []string
	repeats  bool
}

var rules = []rule{
	{
		category: CategoryFrustration,
		cues: []string{
			"not helpful", "unhelpful", "useless", "frustrated", "frustrating", "annoying",
			"you do not understand", "that is not what i asked", "not what i asked",
			"real person", "human", "stupid", "waste of time", "this is not working",
		},
		repeats: true,
	},
	{
		category: CategoryProjectInquiry,
		cues: []string{
			"budget", "quote", "bid", "price", "cost", "project", "remodel", "renovate",
			"renovation", "build", "install", "repair", "replace", "construction",
			"contractor", "addition", "upgrade",
		},
	},
}

var responses = map[Category]Fallback{
	CategoryFrustration: {
		Category: CategoryFrustration,
		Response: "I'm sorry I couldn't answer that. The fastest way to get help is to talk " +
			"with our team directly: call the office or send us an email and a project " +
			"manager will get back to you within one business day.",
		Buttons: []kb.Button{
			{Text: "Call Us", Action: kb.ActionCallOffice},
			{Text: "Email Us", Action: kb.ActionEmailOffice},
		},
	},
	CategoryProjectInquiry: {
		Category: CategoryProjectInquiry,
		Response: "It sounds like you have a project in mind. Every project is a little " +
			"different, so the best next step is a free estimate. Tell us what you're " +
			"planning and we'll follow up with pricing and a schedule.",
		Buttons: []kb.Button{
			{Text: "Start Free Estimate", Action: kb.ActionOpenEstimate},
			{Text: "Call Us", Action: kb.ActionCallOffice},
		},
	},
	CategoryDefault: {
		Category: CategoryDefault,
		Response: "I'm not sure I understood. I can help with residential remodeling, " +
			"commercial construction, pricing, scheduling and free estimates. Could you " +
			"rephrase your question?",
		Buttons: []kb.Button{
			{Text: "Get a Free Estimate", Action: kb.ActionOpenEstimate},
			{Text: "Contact Us", Action: kb.ActionEmailOffice},
		},
	},
}

// Select picks the fallback for query given the prior user messages in history
// (oldest first).
func Select(query string, history []string) Fallback {
	normalized := matcher.Normalize(query)

	for _, r := range rules {
		if r.repeats && repeated(normalized, history) {
			return lookup(r.category)
		}
		for _, cue := range r.cues {
			if matcher.ContainsPhrase(normalized, cue) {
				return lookup(r.category)
			}
		}
	}
	return lookup(CategoryDefault)
}

func repeated(normalized string, history []string) bool {
	if normalized == "" {
		return false
	}
	start := len(history) - RepeatWindow
	if start < 0 {
		start = 0
	}
	for _, prev := range history[start:] {
		if matcher.Normalize(prev) == normalized {
			return true
		}
	}
	return false
}

func lookup(c Category) Fallback {
	f := responses[c]
	f.Buttons = append([]kb.Button(nil), f.Buttons...)
	return f
}

// Categories lists every category in rule order, default last.
func Categories() []Category {
	return []Category{CategoryFrustration, CategoryProjectInquiry, CategoryDefault}
}

// For returns the canned fallback for c. Unknown categories get the default.
func For(c Category) Fallback {
	if _, ok := responses[c]; !ok {
		return lookup(CategoryDefault)
	}
	return lookup(c)
}
