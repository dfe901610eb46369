package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxenbot/internal/config"
	"arxenbot/internal/fallback"
	"arxenbot/internal/kb"
	"arxenbot/internal/metrics"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	c, err := kb.LoadEmbedded()
	require.NoError(t, err)
	return NewService(c, NewDispatcher(config.Default().Estimate), nil, nil)
}

func TestReply_KnowledgeBase(t *testing.T) {
	s := newTestService(t)

	r, err := s.Reply(context.Background(), Request{Message: "I'm thinking about a kitchen remodel"})
	require.NoError(t, err)
	assert.Equal(t, SourceKnowledgeBase, r.Source)
	require.NotNil(t, r.Ref)
	assert.Equal(t, kb.SourceResidential, r.Ref.Source)
	assert.Empty(t, r.Category)
}

func TestReply_EndChat(t *testing.T) {
	s := newTestService(t)

	r, err := s.Reply(context.Background(), Request{Message: "Goodbye!"})
	require.NoError(t, err)
	assert.Equal(t, kb.TypeEndChat, r.Type)
}

func TestReply_Fallback(t *testing.T) {
	s := newTestService(t)

	r, err := s.Reply(context.Background(), Request{Message: "xyzzy plugh"})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, r.Source)
	assert.Equal(t, fallback.CategoryDefault, r.Category)
	assert.Nil(t, r.Ref)

	r, err = s.Reply(context.Background(), Request{Message: "xyzzy plugh", History: []string{"xyzzy plugh"}})
	require.NoError(t, err)
	assert.Equal(t, fallback.CategoryFrustration, r.Category)
}

func TestReply_Validation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Reply(context.Background(), Request{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Reply(context.Background(), Request{Message: strings.Repeat("é", MaxMessageRunes+1)})
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = s.Reply(context.Background(), Request{Message: strings.Repeat("é", MaxMessageRunes)})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Reply(ctx, Request{Message: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetCorpus(t *testing.T) {
	s := newTestService(t)

	c, err := kb.NewCorpus(map[kb.Source][]kb.Entry{
		kb.SourceCommon: {{Patterns: []string{"xyzzy"}, Response: "Nothing happens."}},
	})
	require.NoError(t, err)
	s.SetCorpus(c)

	r, err := s.Reply(context.Background(), Request{Message: "xyzzy plugh"})
	require.NoError(t, err)
	assert.Equal(t, "Nothing happens.", r.Response)
	assert.Same(t, c, s.Corpus())
}

func TestReply_Metrics(t *testing.T) {
	c, err := kb.LoadEmbedded()
	require.NoError(t, err)
	m := metrics.New()
	s := NewService(c, nil, m, nil)

	_, err = s.Reply(context.Background(), Request{Message: "xyzzy"})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "arxenbot_chat_replies_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatch(t *testing.T) {
	d := NewDispatcher(config.EstimateConfig{
		OfficePhone:  "(404) 934-9458",
		SupportEmail: "info@arxenconstruction.com",
		EstimateURL:  "/free-estimate",
	})

	tests := []struct {
		action kb.Action
		want   Directive
	}{
		{kb.ActionOpenEstimate, Directive{Action: kb.ActionOpenEstimate, Kind: DirectiveNavigate, Target: "/free-estimate"}},
		{kb.ActionCallOffice, Directive{Action: kb.ActionCallOffice, Kind: DirectiveNavigate, Target: "tel:4049349458"}},
		{kb.ActionEmailOffice, Directive{Action: kb.ActionEmailOffice, Kind: DirectiveNavigate, Target: "mailto:info@arxenconstruction.com"}},
		{kb.ActionRestartChat, Directive{Action: kb.ActionRestartChat, Kind: DirectiveRestart}},
		{kb.ActionEndChat, Directive{Action: kb.ActionEndChat, Kind: DirectiveClose}},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			got, err := d.Dispatch(tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := d.Dispatch("teleport")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestHeaderButtonsResolve(t *testing.T) {
	d := NewDispatcher(config.Default().Estimate)
	buttons := HeaderButtons()
	require.Len(t, buttons, 3)
	for _, b := range buttons {
		_, err := d.Dispatch(b.Action)
		assert.NoError(t, err, b.Text)
	}
}

func TestEveryCorpusActionResolves(t *testing.T) {
	c, err := kb.LoadEmbedded()
	require.NoError(t, err)
	d := NewDispatcher(config.Default().Estimate)
	for i, e := range c.Entries() {
		for _, b := range e.Buttons {
			if b.Action == kb.ActionNone {
				continue
			}
			_, err := d.Dispatch(b.Action)
			assert.NoError(t, err, "entry %d button %q", i, b.Text)
		}
	}
}

func TestReply_InflectedQueries(t *testing.T) {
	s := newTestService(t)

	for _, q := range []string{
		"kitchen remodeling",
		"I need kitchen remodeling",
		"roofing",
		"new kitchens",
		"do you build decks?",
		"bathroom remodeling quote please",
	} {
		r, err := s.Reply(context.Background(), Request{Message: q})
		require.NoError(t, err)
		assert.Equal(t, SourceKnowledgeBase, r.Source, q)
		require.NotNil(t, r.Ref, q)
		assert.Equal(t, kb.SourceResidential, r.Ref.Source, q)
	}
}
