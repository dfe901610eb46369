// Package delivery sends a completed estimate to the office through two
// independent channels, an email service and a form relay. Both always run;
// either may succeed or fail on its own, and duplicate notifications are an
// accepted outcome. The email channel decides what the customer is told.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arxenbot/internal/estimate"
	"arxenbot/internal/metrics"
	"arxenbot/internal/pdf"
)

// ErrNotReady is returned when the wizard has not reached the review step.
var ErrNotReady = errors.New("estimate is not ready to submit")

// DefaultSafetyTimeout bounds how long Submit waits for delivery.
const DefaultSafetyTimeout = 10 * time.Second

// Submission is recorded before delivery starts.
type Submission struct {
	ReferenceNumber string
	Form            estimate.FormData
	PDF             []byte
	CreatedAt       time.Time
}

// Result is recorded once both channels have finished.
type Result struct {
	EmailErr   error
	RelayErr   error
	FinishedAt time.Time
}

// Recorder persists submissions. Recording failures are logged and never fail
// a submission.
type Recorder interface {
	CreateSubmission(ctx context.Context, sub Submission) error
	FinishSubmission(ctx context.Context, ref string, res Result) error
}

// Notice is shown to the customer when the email channel fails.
type Notice struct {
	Message         string `json:"message"`
	ReferenceNumber string `json:"reference_number"`
	SupportEmail    string `json:"support_email"`
}

// Outcome is what the customer sees after pressing submit.
type Outcome struct {
	ReferenceNumber string  `json:"reference_number"`
	Complete        bool    `json:"submission_complete"`
	Pending         bool    `json:"pending,omitempty"`
	Filename        string  `json:"pdf_filename,omitempty"`
	Notice          *Notice `json:"notice,omitempty"`
	PDF             []byte  `json:"-"`
}

// Submitter renders the PDF once and runs both delivery channels.
type Submitter struct {
	Email         EmailSender
	Relay         Relay
	Recorder      Recorder
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	Company       pdf.Company
	SupportEmail  string
	SafetyTimeout time.Duration

	// Overridable for tests.
	Render func(io.Writer, pdf.Document) error
	NewRef func() string
	Now    func() time.Time
}

// Submit delivers the wizard's form data. It waits for both channels or the
// safety timeout, whichever comes first. After the timeout the outcome is
// Pending and delivery carries on in the background; nothing cancels an
// in-flight send, including ctx.
func (s *Submitter) Submit(ctx context.Context, w *estimate.Wizard) (Outcome, error) {
	if w.SubmissionComplete {
		return Outcome{}, estimate.ErrSubmitted
	}
	if w.Step != estimate.StepReview {
		return Outcome{}, fmt.Errorf("%w: at step %s", ErrNotReady, w.Step)
	}

	ref := s.newRef()
	now := s.now()
	log := s.logger().With(zap.String("reference_number", ref))

	doc := pdf.Document{
		ReferenceNumber: ref,
		CreatedAt:       now,
		Form:            w.Data,
		Company:         s.Company,
	}
	if promo, ok := w.Promo(); ok {
		doc.Promo = &promo
	}

	var buf bytes.Buffer
	var attachment *Attachment
	if err := s.render(&buf, doc); err != nil {
		log.Error("failed to render estimate pdf", zap.Error(err))
	} else {
		attachment = &Attachment{Filename: pdf.Filename(ref), ContentType: "application/pdf", Data: buf.Bytes()}
	}

	params := BuildParams(w.Data, ref, now)
	dctx := context.WithoutCancel(ctx)

	if s.Recorder != nil {
		sub := Submission{ReferenceNumber: ref, Form: w.Data, CreatedAt: now}
		if attachment != nil {
			sub.PDF = attachment.Data
		}
		if err := s.Recorder.CreateSubmission(dctx, sub); err != nil {
			log.Warn("failed to record submission", zap.Error(err))
		}
	}

	var emailErr, relayErr error
	var g errgroup.Group
	g.Go(func() error {
		emailErr = s.Email.Send(dctx, params, attachment)
		s.Metrics.Delivery("email", emailErr)
		return nil
	})
	g.Go(func() error {
		relayErr = s.Relay.Post(dctx, params)
		if !errors.Is(relayErr, ErrRelayDisabled) {
			s.Metrics.Delivery("relay", relayErr)
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		s.finish(dctx, log, ref, Result{EmailErr: emailErr, RelayErr: relayErr, FinishedAt: s.now()})
		close(done)
	}()

	outcome := Outcome{ReferenceNumber: ref, Filename: pdf.Filename(ref)}
	if attachment != nil {
		outcome.PDF = attachment.Data
	}

	timer := time.NewTimer(s.safetyTimeout())
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		log.Warn("delivery still running after safety timeout", zap.Duration("timeout", s.safetyTimeout()))
		s.Metrics.Submission("pending")
		outcome.Pending = true
		return outcome, nil
	}

	if emailErr != nil {
		s.Metrics.Submission("failed")
		outcome.Notice = &Notice{
			Message: "We couldn't send your estimate request automatically. Please email us and " +
				"include your reference number so we can follow up.",
			ReferenceNumber: ref,
			SupportEmail:    s.SupportEmail,
		}
		return outcome, nil
	}

	w.Complete(ref)
	s.Metrics.Submission("complete")
	outcome.Complete = true
	return outcome, nil
}

func (s *Submitter) finish(ctx context.Context, log *zap.Logger, ref string, res Result) {
	fields := []zap.Field{zap.NamedError("email_error", res.EmailErr)}
	if !errors.Is(res.RelayErr, ErrRelayDisabled) {
		fields = append(fields, zap.NamedError("relay_error", res.RelayErr))
	}
	if res.EmailErr != nil {
		log.Error("estimate email failed", fields...)
	} else {
		log.Info("estimate delivered", fields...)
	}
	if s.Recorder != nil {
		if err := s.Recorder.FinishSubmission(ctx, ref, res); err != nil {
			log.Warn("failed to record delivery result", zap.Error(err))
		}
	}
}

func (s *Submitter) render(w io.Writer, doc pdf.Document) error {
	if s.Render != nil {
		return s.Render(w, doc)
	}
	return pdf.Render(w, doc)
}

func (s *Submitter) newRef() string {
	if s.NewRef != nil {
		return s.NewRef()
	}
	return estimate.NewReferenceNumber()
}

func (s *Submitter) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Submitter) safetyTimeout() time.Duration {
	if s.SafetyTimeout > 0 {
		return s.SafetyTimeout
	}
	return DefaultSafetyTimeout
}

func (s *Submitter) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
