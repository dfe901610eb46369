package kb

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// ErrEmptyCorpus is returned when no entries were loaded from any source.
var ErrEmptyCorpus = errors.New("knowledge base is empty")

// Corpus is the read-only union of all sources in corpus order.
type Corpus struct {
	entries  []Entry
	refs     []Ref
	counts   map[Source]int
	origin   string
	loadedAt time.Time
}

// Len returns the number of entries.
func (c *Corpus) Len() int { return len(c.entries) }

// Origin describes where the corpus was loaded from ("embedded" or a directory).
func (c *Corpus) Origin() string { return c.origin }

// LoadedAt returns the load time.
func (c *Corpus) LoadedAt() time.Time { return c.loadedAt }

// Count returns the number of entries loaded from src.
func (c *Corpus) Count(src Source) int { return c.counts[src] }

// Entry returns a copy of the i-th entry and its location.
func (c *Corpus) Entry(i int) (Entry, Ref) {
	return cloneEntry(c.entries[i]), c.refs[i]
}

// Entries returns a copy of every entry in corpus order.
func (c *Corpus) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Source returns a copy of the entries that came from src.
func (c *Corpus) Source(src Source) []Entry {
	var out []Entry
	for i, ref := range c.refs {
		if ref.Source == src {
			out = append(out, cloneEntry(c.entries[i]))
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	e.Patterns = append([]string(nil), e.Patterns...)
	e.Buttons = append([]Button(nil), e.Buttons...)
	return e
}

// LoadEmbedded loads the knowledge base compiled into the binary.
func LoadEmbedded() (*Corpus, error) {
	return load(embedded, "data", "embedded")
}

// LoadDir loads <dir>/<source>.yaml for every source. A source file missing from
// dir falls back to the embedded copy.
func LoadDir(dir string) (*Corpus, error) {
	if dir == "" {
		return LoadEmbedded()
	}
	return load(overlayFS{dir: os.DirFS(dir)}, ".", dir)
}

// overlayFS reads from dir first and the embedded data second.
type overlayFS struct {
	dir fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.dir.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return embedded.Open("data/" + name)
	}
	return f, err
}

func load(fsys fs.FS, root, origin string) (*Corpus, error) {
	c := &Corpus{
		counts:   make(map[Source]int, len(Sources)),
		origin:   origin,
		loadedAt: time.Now(),
	}
	for _, src := range Sources {
		entries, err := readSource(fsys, root, src)
		if err != nil {
			return nil, err
		}
		for i, e := range entries {
			c.entries = append(c.entries, e)
			c.refs = append(c.refs, Ref{Source: src, Index: i})
		}
		c.counts[src] = len(entries)
	}
	if len(c.entries) == 0 {
		return nil, ErrEmptyCorpus
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func readSource(fsys fs.FS, root string, src Source) ([]Entry, error) {
	name := string(src) + ".yaml"
	if root != "." {
		name = root + "/" + name
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s knowledge base: %w", src, err)
	}
	return ParseSource(data, src)
}

// ParseSource decodes one knowledge-base YAML document.
func ParseSource(data []byte, src Source) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s knowledge base: %w", src, err)
	}
	for i := range f.Entries {
		e := &f.Entries[i]
		e.Response = strings.TrimSpace(e.Response)
		for j, p := range e.Patterns {
			e.Patterns[j] = strings.TrimSpace(p)
		}
	}
	return f.Entries, nil
}

// NewCorpus builds a validated corpus from in-memory sources, in Sources order.
// Used by tools and tests that assemble entries without files.
func NewCorpus(sources map[Source][]Entry) (*Corpus, error) {
	c := &Corpus{
		counts:   make(map[Source]int, len(Sources)),
		origin:   "memory",
		loadedAt: time.Now(),
	}
	for _, src := range Sources {
		for i, e := range sources[src] {
			c.entries = append(c.entries, cloneEntry(e))
			c.refs = append(c.refs, Ref{Source: src, Index: i})
		}
		c.counts[src] = len(sources[src])
	}
	if len(c.entries) == 0 {
		return nil, ErrEmptyCorpus
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}
