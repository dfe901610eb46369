package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"arxenbot/internal/estimate"
)

// DraftKeyPrefix prefixes every draft key.
const DraftKeyPrefix = "arxen-estimate-"

// ErrDraftNotFound is returned for unknown draft keys.
var ErrDraftNotFound = errors.New("draft not found")

// SaveDraft stores a snapshot of form under a new key. Attachments are not kept.
func (s *Store) SaveDraft(ctx context.Context, form estimate.FormData) (string, error) {
	data, err := json.Marshal(form.Snapshot())
	if err != nil {
		return "", fmt.Errorf("failed to encode draft: %w", err)
	}
	key := DraftKeyPrefix + uuid.NewString()
	now := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (key, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		key, string(data), now, now); err != nil {
		return "", fmt.Errorf("failed to insert draft: %w", err)
	}
	return key, nil
}

// UpdateDraft overwrites an existing draft.
func (s *Store) UpdateDraft(ctx context.Context, key string, form estimate.FormData) error {
	data, err := json.Marshal(form.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET data = ?, updated_at = ? WHERE key = ?`,
		string(data), s.now().UnixMilli(), DraftKey(key))
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// LoadDraft returns the form saved under key. Both the full key and the bare
// generated part accepted by ShareURL resolve to the same draft.
func (s *Store) LoadDraft(ctx context.Context, key string) (estimate.FormData, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT data FROM drafts WHERE key = ?`, DraftKey(key))
	if errors.Is(err, sql.ErrNoRows) {
		return estimate.FormData{}, ErrDraftNotFound
	}
	if err != nil {
		return estimate.FormData{}, fmt.Errorf("failed to select draft: %w", err)
	}
	var form estimate.FormData
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return estimate.FormData{}, fmt.Errorf("failed to decode draft %s: %w", key, err)
	}
	return form, nil
}

// PurgeDrafts deletes drafts untouched since before cutoff.
func (s *Store) PurgeDrafts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge drafts: %w", err)
	}
	return res.RowsAffected()
}

// DraftKey returns the full storage key for either form of a draft key.
func DraftKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, DraftKeyPrefix) {
		return key
	}
	return DraftKeyPrefix + key
}

// ShareURL returns base with ?draft=<generated key> so a draft can be resumed
// from another device.
func ShareURL(base, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid draft base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("draft", strings.TrimPrefix(DraftKey(key), DraftKeyPrefix))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
