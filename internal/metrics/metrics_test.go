package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ChatReply("fallback", "default")
	m.ChatReply("fallback", "default")
	m.Delivery("email", errors.New("rejected"))
	m.Delivery("relay", nil)
	m.KBReload(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatReplies.WithLabelValues("fallback", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("email", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("relay", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.kbReloads.WithLabelValues("ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChatReply("a", "b")
		m.Delivery("email", nil)
		m.Submission("complete")
		m.KBReload(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Submission("complete")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `arxenbot_estimate_submissions_total{outcome="complete"} 1`)
}
