package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrRelayDisabled is returned when no relay URL is configured.
var ErrRelayDisabled = errors.New("form relay is not configured")

// Relay is the redundant delivery channel: the same parameters posted as an
// HTML form to a third-party form endpoint.
type Relay interface {
	Post(ctx context.Context, params Params) error
}

// FormRelay posts application/x-www-form-urlencoded bodies to URL.
type FormRelay struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Post submits params. Any 2xx or 3xx answer counts as delivered, since form
// endpoints usually redirect to a thank-you page.
func (r *FormRelay) Post(ctx context.Context, params Params) error {
	if r.URL == "" {
		return ErrRelayDisabled
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	form := url.Values{}
	for _, k := range params.Keys() {
		form.Set(k, params[k])
	}
	form.Set("_subject", fmt.Sprintf("Estimate request %s", params["reference_number"]))
	form.Set("_captcha", "false")
	form.Set("_template", "table")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := r.Client
	if client == nil {
		client = noRedirectClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach form relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("form relay answered status %d", resp.StatusCode)
	}
	return nil
}

var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}
