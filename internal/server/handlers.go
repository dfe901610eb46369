package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"arxenbot/internal/catalog"
	"arxenbot/internal/chat"
	"arxenbot/internal/delivery"
	"arxenbot/internal/estimate"
	"arxenbot/internal/kb"
	"arxenbot/internal/pdf"
	"arxenbot/internal/store"
)

func (s *Server) handleHealth(c echo.Context) error {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		KBEntries: s.chat.Corpus().Len(),
	}
	if s.kb != nil {
		resp.AutoReload = s.kb.Info().Watching
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChat(c echo.Context) error {
	var req chat.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}

	reply, err := s.chat.Reply(c.Request().Context(), req)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message is required"})
	case errors.Is(err, chat.ErrMessageTooLong):
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("message must be at most %d characters", chat.MaxMessageRunes),
		})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) handleChatConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, chatConfigResponse{
		Greeting:      chat.Greeting,
		HeaderButtons: chat.HeaderButtons(),
		MaxMessage:    chat.MaxMessageRunes,
	})
}

func (s *Server) handleChatAction(c echo.Context) error {
	action, err := kb.ParseAction(c.Param("action"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	dir, err := s.chat.Dispatch(action)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, dir)
}

func (s *Server) handleServices(c echo.Context) error {
	return c.JSON(http.StatusOK, servicesResponse{Services: catalog.All()})
}

func (s *Server) handlePromo(c echo.Context) error {
	promo, ok := estimate.LookupPromo(c.Param("code"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Unknown promo code"})
	}
	return c.JSON(http.StatusOK, promo)
}

func (s *Server) handleValidate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}
	if !req.Step.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "step must be between 1 and 4"})
	}
	errs := estimate.Errors(req.Step, req.Data)
	if errs == nil {
		errs = []estimate.FieldError{}
	}
	return c.JSON(http.StatusOK, validateResponse{Step: req.Step, CanProceed: len(errs) == 0, Errors: errs})
}

func (s *Server) handleSaveDraft(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Drafts are not available"})
	}
	var form estimate.FormData
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}
	key, err := s.store.SaveDraft(c.Request().Context(), form)
	if err != nil {
		return err
	}
	share, err := store.ShareURL(s.cfg.Estimate.DraftBaseURL, key)
	if err != nil {
		s.logger.Warn("failed to build draft share url", zap.Error(err))
	}
	return c.JSON(http.StatusCreated, draftResponse{Key: key, ShareURL: share})
}

func (s *Server) handleUpdateDraft(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Drafts are not available"})
	}
	var form estimate.FormData
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}
	key := store.DraftKey(c.Param("key"))
	err := s.store.UpdateDraft(c.Request().Context(), key, form)
	if errors.Is(err, store.ErrDraftNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Draft not found"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, draftResponse{Key: key})
}

// handlePatchDraft merges a JSON object into one section of a stored draft.
func (s *Server) handlePatchDraft(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Drafts are not available"})
	}
	patch, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}
	ctx := c.Request().Context()
	key := store.DraftKey(c.Param("key"))
	form, err := s.store.LoadDraft(ctx, key)
	if errors.Is(err, store.ErrDraftNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Draft not found"})
	}
	if err != nil {
		return err
	}

	w, _ := estimate.Resume(form)
	if err := w.Update(estimate.Section(c.Param("section")), patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := s.store.UpdateDraft(ctx, key, w.Data); err != nil {
		return err
	}
	w, errs := estimate.Resume(w.Data)
	return c.JSON(http.StatusOK, draftResponse{Key: key, Data: &w.Data, Step: w.Step, Errors: errs})
}

// handleLoadDraft returns the draft together with the step it resumes at, so
// the client cannot land past a step that no longer validates.
func (s *Server) handleLoadDraft(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Drafts are not available"})
	}
	key := store.DraftKey(c.Param("key"))
	form, err := s.store.LoadDraft(c.Request().Context(), key)
	if errors.Is(err, store.ErrDraftNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Draft not found"})
	}
	if err != nil {
		return err
	}
	w, errs := estimate.Resume(form)
	return c.JSON(http.StatusOK, draftResponse{Key: key, Data: &w.Data, Step: w.Step, Errors: errs})
}

func (s *Server) handleSubmit(c echo.Context) error {
	var form estimate.FormData
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request"})
	}
	w, errs := estimate.Resume(form)
	if len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, incompleteResponse{
			Error:  "Please complete every step before submitting.",
			Step:   w.Step,
			Errors: errs,
		})
	}

	outcome, err := s.submitter.Submit(c.Request().Context(), w)
	if err != nil {
		if errors.Is(err, delivery.ErrNotReady) || errors.Is(err, estimate.ErrSubmitted) {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		return err
	}

	resp := submitResponse{Outcome: outcome}
	if s.store != nil && len(outcome.PDF) > 0 {
		resp.PDFURL = "/api/estimate/pdf/" + outcome.ReferenceNumber
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePDF(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "PDF not found"})
	}
	ref := c.Param("ref")
	data, err := s.store.SubmissionPDF(c.Request().Context(), ref)
	if errors.Is(err, store.ErrSubmissionNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "PDF not found"})
	}
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", pdf.Filename(ref)))
	return c.Blob(http.StatusOK, "application/pdf", data)
}

func (s *Server) handleKBInfo(c echo.Context) error {
	if s.kb == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Knowledge base store not configured"})
	}
	return c.JSON(http.StatusOK, s.kb.Info())
}

func (s *Server) handleKBDuplicates(c echo.Context) error {
	return c.JSON(http.StatusOK, kb.FindDuplicates(s.chat.Corpus()))
}

func (s *Server) handleKBReload(c echo.Context) error {
	if s.kb == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Knowledge base store not configured"})
	}
	if err := s.kb.Reload(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error: fmt.Sprintf("reload failed, previous knowledge base kept: %v", err),
		})
	}
	corpus := s.kb.Current()
	return c.JSON(http.StatusOK, reloadResponse{
		Message:    fmt.Sprintf("Knowledge base reloaded from %s", corpus.Origin()),
		Entries:    corpus.Len(),
		ReloadedAt: corpus.LoadedAt(),
	})
}

func (s *Server) handleSubmission(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Submission not found"})
	}
	rec, err := s.store.Submission(c.Request().Context(), c.Param("ref"))
	if errors.Is(err, store.ErrSubmissionNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Submission not found"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
