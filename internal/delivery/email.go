package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"arxenbot/internal/config"
	"arxenbot/internal/estimate"
)

// ErrEmailRejected wraps a non-success answer from the email provider.
var ErrEmailRejected = errors.New("email service rejected the message")

// Params is the flat key/value set handed to the email template and the form relay.
type Params map[string]string

// Attachment is an in-memory file attached to the office email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailSender delivers the estimate notification.
type EmailSender interface {
	Send(ctx context.Context, params Params, attachment *Attachment) error
}

// BuildParams flattens the form into template parameters.
func BuildParams(form estimate.FormData, ref string, submittedAt time.Time) Params {
	c := form.ContactInfo
	d := form.ProjectDetails

	files := make([]string, len(form.Files))
	for i, f := range form.Files {
		files[i] = f.Name
	}

	p := Params{
		"from_name":           c.Name,
		"from_email":          c.Email,
		"reply_to":            c.Email,
		"phone":               c.Phone,
		"preferred_contact":   c.PreferredContact,
		"best_time":           c.BestTime,
		"address":             strings.TrimSpace(strings.Join([]string{c.Address, c.City, c.Zip}, " ")),
		"reference_number":    ref,
		"service_list":        strings.Join(form.ServiceLabels(), ", "),
		"property_type":       string(form.Services.PropertyType),
		"other_services":      form.Services.Other,
		"project_description": d.Description,
		"urgency":             d.Urgency,
		"scope":               d.Scope,
		"square_footage":      d.SquareFootage,
		"budget":              d.Budget,
		"preferred_start":     form.Timeline.PreferredStart,
		"flexibility":         form.Timeline.Flexibility,
		"attachments":         strings.Join(files, ", "),
		"notes":               form.Notes,
		"promo_code":          c.PromoCode,
		"submitted_at":        submittedAt.Format(time.RFC1123),
	}
	if promo, ok := estimate.LookupPromo(c.PromoCode); ok {
		p["promo_headline"] = promo.Headline
	}
	return p
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewEmailSender builds the sender selected by cfg.Provider.
func NewEmailSender(cfg config.EmailConfig, client *http.Client, logger *zap.Logger) (EmailSender, error) {
	switch cfg.Provider {
	case "emailjs":
		return &EmailJSSender{
			Endpoint:   cfg.EmailJSEndpoint,
			ServiceID:  cfg.ServiceID,
			TemplateID: cfg.TemplateID,
			PublicKey:  cfg.PublicKey,
			PrivateKey: cfg.PrivateKey,
			Client:     client,
		}, nil
	case "smtp":
		sender, err := NewSMTPSender(cfg)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case "none", "":
		return &LogSender{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// EmailJSSender posts template parameters to the EmailJS REST API.
type EmailJSSender struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Client     *http.Client
}

type emailJSRequest struct {
	ServiceID      string `json:"service_id"`
	TemplateID     string `json:"template_id"`
	UserID         string `json:"user_id"`
	AccessToken    string `json:"accessToken,omitempty"`
	TemplateParams Params `json:"template_params"`
}

// Send delivers params to the template. EmailJS templates cannot carry the
// PDF, so the attachment is ignored; customers download it from the success page.
func (s *EmailJSSender) Send(ctx context.Context, params Params, _ *Attachment) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      s.ServiceID,
		TemplateID:     s.TemplateID,
		UserID:         s.PublicKey,
		AccessToken:    s.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrEmailRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SMTPSender sends a plain-text summary with the PDF attached.
type SMTPSender struct {
	client *mail.Client
	from   string
	to     string
}

// NewSMTPSender configures an SMTP client from cfg.
func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	opts := []mail.Option{mail.WithPort(cfg.SMTPPort), mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, to: cfg.To}, nil
}

// Send delivers the notification to the office inbox.
func (s *SMTPSender) Send(ctx context.Context, params Params, attachment *Attachment) error {
	msg, err := BuildMessage(s.from, s.to, params, attachment)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailRejected, err)
	}
	return nil
}

// BuildMessage assembles the office notification email.
func BuildMessage(from, to string, params Params, attachment *Attachment) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if replyTo := params["reply_to"]; replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	msg.Subject(fmt.Sprintf("New estimate request %s from %s", params["reference_number"], params["from_name"]))

	var body strings.Builder
	for _, k := range params.Keys() {
		if v := params[k]; v != "" {
			fmt.Fprintf(&body, "%s: %s\n", k, v)
		}
	}
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if attachment != nil && len(attachment.Data) > 0 {
		if err := msg.AttachReader(attachment.Filename, bytes.NewReader(attachment.Data),
			mail.WithFileContentType(mail.ContentType(attachment.ContentType))); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", attachment.Filename, err)
		}
	}
	return msg, nil
}

// LogSender logs instead of sending. Used when no provider is configured.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the reference number and recipient details.
func (s *LogSender) Send(_ context.Context, params Params, attachment *Attachment) error {
	fields := []zap.Field{
		zap.String("reference_number", params["reference_number"]),
		zap.String("from_email", params["from_email"]),
		zap.String("service_list", params["service_list"]),
	}
	if attachment != nil {
		fields = append(fields, zap.String("attachment", attachment.Filename), zap.Int("attachment_bytes", len(attachment.Data)))
	}
	s.Logger.Info("email provider disabled, estimate notification logged", fields...)
	return nil
}
