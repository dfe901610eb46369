package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arxenbot/internal/chat"
	"arxenbot/internal/config"
	"arxenbot/internal/delivery"
	"arxenbot/internal/estimate"
	"arxenbot/internal/kb"
	"arxenbot/internal/metrics"
	"arxenbot/internal/store"
)

type testEnv struct {
	srv   *Server
	kb    *kb.Store
	store *store.Store
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := *config.Default()
	cfg.Server.ChatRateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}
	logger := zap.NewNop()

	kbStore, err := kb.NewStore(cfg.KB.Dir, logger)
	require.NoError(t, err)

	db, err := store.Open(config.StoreConfig{Path: filepath.Join(t.TempDir(), "server.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := metrics.New()
	svc := chat.NewService(kbStore.Current(), chat.NewDispatcher(cfg.Estimate), m, logger)
	kbStore.OnReload(func(c *kb.Corpus, err error) {
		if err == nil {
			svc.SetCorpus(c)
		}
	})

	sub := &delivery.Submitter{
		Email:        &delivery.LogSender{Logger: logger},
		Relay:        &delivery.FormRelay{},
		Recorder:     db,
		Metrics:      m,
		Logger:       logger,
		SupportEmail: cfg.Estimate.SupportEmail,
	}

	srv := New(Deps{Config: cfg, KB: kbStore, Chat: svc, Store: db, Submitter: sub, Metrics: m, Logger: logger})
	return &testEnv{srv: srv, kb: kbStore, store: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func completeForm() estimate.FormData {
	return estimate.FormData{
		Services:       estimate.Services{Selected: []string{"kitchen-remodeling"}},
		ProjectDetails: estimate.ProjectDetails{Description: "New kitchen", Urgency: "flexible", Scope: "full"},
		ContactInfo: estimate.ContactInfo{
			Name:             "Dana Reyes",
			Email:            "dana@example.com",
			PreferredContact: estimate.ContactEmail,
			PromoCode:        "arx25",
		},
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Positive(t, resp.KBEntries)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[chat.Reply](t, rec)
	assert.Equal(t, chat.SourceKnowledgeBase, reply.Source)

	rec = env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: strings.Repeat("a", chat.MaxMessageRunes+1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.ChatRateLimit = 0.5 })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "hello"}).Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestChatConfigAndActions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/chat/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[chatConfigResponse](t, rec)
	assert.Len(t, cfg.HeaderButtons, 3)
	assert.Equal(t, chat.Greeting, cfg.Greeting)

	rec = env.do(t, http.MethodPost, "/api/chat/actions/call-office", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dir := decode[chat.Directive](t, rec)
	assert.Equal(t, "tel:4049349458", dir.Target)

	rec = env.do(t, http.MethodPost, "/api/chat/actions/self-destruct", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServicesAndPromo(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/estimate/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[servicesResponse](t, rec).Services)

	rec = env.do(t, http.MethodGet, "/api/estimate/promo/arx25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ARX25", decode[estimate.Promo](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/estimate/promo/FREESTUFF", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/estimate/validate", validateRequest{Step: estimate.StepServices})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[validateResponse](t, rec)
	assert.False(t, resp.CanProceed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "services.selected", resp.Errors[0].Field)

	rec = env.do(t, http.MethodPost, "/api/estimate/validate", validateRequest{Step: estimate.StepContact, Data: completeForm()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[validateResponse](t, rec).CanProceed)

	rec = env.do(t, http.MethodPost, "/api/estimate/validate", validateRequest{Step: 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrafts(t *testing.T) {
	env := newTestEnv(t, nil)

	partial := completeForm()
	partial.ProjectDetails = estimate.ProjectDetails{}
	rec := env.do(t, http.MethodPost, "/api/estimate/drafts", partial)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[draftResponse](t, rec)
	require.True(t, strings.HasPrefix(saved.Key, store.DraftKeyPrefix))
	assert.Equal(t, "/free-estimate?draft="+strings.TrimPrefix(saved.Key, store.DraftKeyPrefix), saved.ShareURL)

	bare := strings.TrimPrefix(saved.Key, store.DraftKeyPrefix)
	rec = env.do(t, http.MethodGet, "/api/estimate/drafts/"+bare, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decode[draftResponse](t, rec)
	assert.Equal(t, estimate.StepDetails, loaded.Step, "resumes at the first incomplete step")
	require.NotNil(t, loaded.Data)
	assert.Equal(t, "ARX25", loaded.Data.ContactInfo.PromoCode)

	rec = env.do(t, http.MethodPut, "/api/estimate/drafts/"+saved.Key, completeForm())
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/estimate/drafts/"+saved.Key, nil)
	assert.Equal(t, estimate.StepReview, decode[draftResponse](t, rec).Step)

	rec = env.do(t, http.MethodGet, "/api/estimate/drafts/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchDraftSection(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/estimate/drafts", estimate.FormData{})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode[draftResponse](t, rec).Key

	rec = env.do(t, http.MethodPatch, "/api/estimate/drafts/"+key+"/services",
		map[string]any{"selected": []string{"office-renovation"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[draftResponse](t, rec)
	assert.Equal(t, estimate.StepDetails, resp.Step)
	require.NotNil(t, resp.Data)
	assert.NotEmpty(t, resp.Data.Services.PropertyType)

	rec = env.do(t, http.MethodPatch, "/api/estimate/drafts/"+key+"/project_details",
		map[string]any{"description": 12})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/estimate/drafts/"+key+"/files", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	loaded, err := env.store.LoadDraft(t.Context(), key)
	require.NoError(t, err)
	assert.Equal(t, []string{"office-renovation"}, loaded.Services.Selected)
	assert.Empty(t, loaded.ProjectDetails.Description)

	rec = env.do(t, http.MethodPatch, "/api/estimate/drafts/unknown/services", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitAndDownloadPDF(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/estimate/submit", completeForm())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[submitResponse](t, rec)
	assert.True(t, resp.Complete)
	assert.Regexp(t, `^ARX-\d{6}-\d{3}$`, resp.ReferenceNumber)
	require.NotEmpty(t, resp.PDFURL)

	rec = env.do(t, http.MethodGet, resp.PDFURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Arxen-Estimate-"+resp.ReferenceNumber+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = env.do(t, http.MethodGet, "/admin/submissions/"+resp.ReferenceNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.StatusDelivered, decode[store.SubmissionRecord](t, rec).Status)
}

func TestSubmitIncomplete(t *testing.T) {
	env := newTestEnv(t, nil)

	form := completeForm()
	form.ContactInfo.Email = "not-an-email"
	rec := env.do(t, http.MethodPost, "/api/estimate/submit", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[incompleteResponse](t, rec)
	assert.Equal(t, estimate.StepContact, resp.Step)
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.AdminToken = "s3cret" })

	rec := env.do(t, http.MethodGet, "/admin/kb-info", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing key")

	rec = env.do(t, http.MethodGet, "/admin/kb-info", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/kb-info", nil, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[kb.Info](t, rec)
	assert.Equal(t, "embedded", info.Origin)
	assert.Zero(t, info.Duplicates)
}

func TestAdminReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, func(c *config.Config) { c.KB.Dir = dir })

	rec := env.do(t, http.MethodPost, "/admin/kb/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	before := env.kb.Current()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.yaml"), []byte("entries:\n  - patterns: []\n    response: broken\n"), 0o644))
	rec = env.do(t, http.MethodPost, "/admin/kb/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Same(t, before, env.kb.Current())

	rec = env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "hello"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/chat", chat.Request{Message: "hello"})

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arxenbot_chat_replies_total")
}
