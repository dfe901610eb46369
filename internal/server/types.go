package server

import (
	"time"

	"arxenbot/internal/catalog"
	"arxenbot/internal/delivery"
	"arxenbot/internal/estimate"
	"arxenbot/internal/kb"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Uptime     string    `json:"uptime"`
	KBEntries  int       `json:"kb_entries"`
	AutoReload bool      `json:"auto_reload"`
}

type chatConfigResponse struct {
	Greeting      string      `json:"greeting"`
	HeaderButtons []kb.Button `json:"header_buttons"`
	MaxMessage    int         `json:"max_message_length"`
}

type servicesResponse struct {
	Services []catalog.Service `json:"services"`
}

type validateRequest struct {
	Step estimate.Step     `json:"step"`
	Data estimate.FormData `json:"data"`
}

type validateResponse struct {
	Step       estimate.Step         `json:"step"`
	CanProceed bool                  `json:"can_proceed"`
	Errors     []estimate.FieldError `json:"errors"`
}

type draftResponse struct {
	Key      string                `json:"key"`
	ShareURL string                `json:"share_url,omitempty"`
	Data     *estimate.FormData    `json:"data,omitempty"`
	Step     estimate.Step         `json:"step,omitempty"`
	Errors   []estimate.FieldError `json:"errors,omitempty"`
}

type submitResponse struct {
	delivery.Outcome
	PDFURL string `json:"pdf_url,omitempty"`
}

type incompleteResponse struct {
	Error  string                `json:"error"`
	Step   estimate.Step         `json:"step"`
	Errors []estimate.FieldError `json:"errors"`
}

type reloadResponse struct {
	Message    string    `json:"message"`
	Entries    int       `json:"entries"`
	ReloadedAt time.Time `json:"reloaded_at"`
}
