package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay gives editors time to finish writing before the file is re-read.
const reloadDelay = 100 * time.Millisecond

// ReloadFunc is notified after each reload attempt.
type ReloadFunc func(c *Corpus, err error)

// Store holds the current corpus and swaps it atomically on reload. If a reload
// fails validation the previous corpus stays in place.
type Store struct {
	mu       sync.RWMutex
	corpus   *Corpus
	dir      string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onReload []ReloadFunc
	reloads  int
	lastErr  error
}

// NewStore loads the corpus from dir (or the embedded data when dir is empty).
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	c, err := LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	logger.Info("knowledge base loaded",
		zap.String("origin", c.Origin()),
		zap.Int("residential", c.Count(SourceResidential)),
		zap.Int("commercial", c.Count(SourceCommercial)),
		zap.Int("common", c.Count(SourceCommon)))

	return &Store{corpus: c, dir: dir, logger: logger}, nil
}

// Current returns the active corpus.
func (s *Store) Current() *Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

// OnReload registers fn to run after every reload attempt.
func (s *Store) OnReload(fn ReloadFunc) {
	s.mu.Lock()
	s.onReload = append(s.onReload, fn)
	s.mu.Unlock()
}

// Reload re-reads the knowledge base. On failure the current corpus is kept and
// the error returned.
func (s *Store) Reload() error {
	c, err := LoadDir(s.dir)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.corpus = c
		s.reloads++
	}
	hooks := append([]ReloadFunc(nil), s.onReload...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(c, err)
	}

	if err != nil {
		s.logger.Warn("knowledge base reload failed, keeping previous corpus", zap.Error(err))
		return err
	}
	s.logger.Info("knowledge base reloaded", zap.String("origin", c.Origin()), zap.Int("entries", c.Len()))
	return nil
}

// Watch starts watching the override directory and reloads on changes to
// .yaml files. It returns immediately; the watch loop ends when ctx is done or
// Close is called. Watching the embedded corpus is a no-op.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch knowledge base directory: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	s.logger.Info("file watcher initialized", zap.String("dir", s.dir))
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			// Small delay to ensure file write is complete
			select {
			case <-time.After(reloadDelay):
			case <-ctx.Done():
				return
			}
			s.logger.Info("knowledge base file changed", zap.String("file", filepath.Base(event.Name)))
			_ = s.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

// Info describes the store for the admin endpoint.
type Info struct {
	Origin     string         `json:"origin"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Entries    int            `json:"entries"`
	Sources    map[Source]int `json:"sources"`
	Reloads    int            `json:"reloads"`
	Watching   bool           `json:"watching"`
	LastError  string         `json:"last_error,omitempty"`
	Duplicates int            `json:"duplicate_patterns"`
}

// Info returns a snapshot of the store state.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		Origin:     s.corpus.Origin(),
		LoadedAt:   s.corpus.LoadedAt(),
		Entries:    s.corpus.Len(),
		Sources:    make(map[Source]int, len(Sources)),
		Reloads:    s.reloads,
		Watching:   s.watcher != nil,
		Duplicates: len(FindDuplicates(s.corpus)),
	}
	for _, src := range Sources {
		info.Sources[src] = s.corpus.Count(src)
	}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	return info
}
