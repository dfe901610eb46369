// Package chat answers widget messages from the knowledge base, falling back to
// canned replies when nothing matches.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"

	"arxenbot/internal/fallback"
	"arxenbot/internal/kb"
	"arxenbot/internal/matcher"
	"arxenbot/internal/metrics"
)

// MaxMessageRunes caps the length of a single chat message.
const MaxMessageRunes = 1000

// Greeting opens every conversation.
const Greeting = "Hi! I'm the Arxen Construction assistant. Ask me about our residential or " +
	"commercial services, or request a free estimate."

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
)

// ReplySource says where a reply came from.
type ReplySource string

const (
	SourceKnowledgeBase ReplySource = "knowledge-base"
	SourceFallback      ReplySource = "fallback"
)

// Request is one user message plus the recent conversation, oldest first.
type Request struct {
	Message string   `json:"message"`
	History []string `json:"history,omitempty"`
}

// Reply is the bot's answer.
type Reply struct {
	Response string            `json:"response"`
	Buttons  []kb.Button       `json:"buttons,omitempty"`
	Type     kb.EntryType      `json:"type,omitempty"`
	Source   ReplySource       `json:"source"`
	Category fallback.Category `json:"category,omitempty"`
	Ref      *kb.Ref           `json:"ref,omitempty"`
}

// Service is safe for concurrent use. The matcher is swapped whole when the
// knowledge base reloads.
type Service struct {
	matcher  atomic.Pointer[matcher.Matcher]
	dispatch Dispatcher
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService builds a service answering from c.
func NewService(c *kb.Corpus, dispatch Dispatcher, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{dispatch: dispatch, metrics: m, logger: logger}
	s.matcher.Store(matcher.New(c))
	return s
}

// SetCorpus rebuilds the matcher for c. Meant as a kb.Store reload hook.
func (s *Service) SetCorpus(c *kb.Corpus) {
	s.matcher.Store(matcher.New(c))
}

// Corpus returns the corpus currently answering.
func (s *Service) Corpus() *kb.Corpus {
	return s.matcher.Load().Corpus()
}

// Reply answers req.Message.
func (s *Service) Reply(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Reply{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		return Reply{}, ErrMessageTooLong
	}

	if res, ok := s.matcher.Load().Match(msg); ok {
		ref := res.Ref
		s.metrics.ChatReply(string(SourceKnowledgeBase), string(res.Ref.Source))
		s.logger.Debug("matched knowledge base entry",
			zap.Stringer("ref", res.Ref),
			zap.String("pattern", res.Pattern),
			zap.String("match_type", string(res.Type)))
		return Reply{
			Response: res.Entry.Response,
			Buttons:  res.Entry.Buttons,
			Type:     res.Entry.Type,
			Source:   SourceKnowledgeBase,
			Ref:      &ref,
		}, nil
	}

	fb := fallback.Select(msg, req.History)
	s.metrics.ChatReply(string(SourceFallback), string(fb.Category))
	s.logger.Debug("no knowledge base match, using fallback", zap.String("category", string(fb.Category)))
	return Reply{
		Response: fb.Response,
		Buttons:  fb.Buttons,
		Source:   SourceFallback,
		Category: fb.Category,
	}, nil
}

// Dispatch resolves a button action through the injected table.
func (s *Service) Dispatch(a kb.Action) (Directive, error) {
	return s.dispatch.Dispatch(a)
}
