package pipeline

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/couchcryptid/lightning-map/internal/domain"
)

// ErrArtifactNotFound is returned when no artifact exists for a name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a generated file ready to be served.
type Artifact struct {
	Kind string // domain.ResultImage or domain.ResultTable
	File string // path relative to the artifact directory
	Path string // absolute or working-directory relative path on disk
}

// ArtifactStore locates generated artifacts by file stem.
type ArtifactStore interface {
	Find(ctx context.Context, stem string) (Artifact, error)
	CheckReadiness(ctx context.Context) error
}

// artifactExts maps file extensions to result kinds, in lookup order.
var artifactExts = []struct {
	ext  string
	kind string
}{
	{".png", domain.ResultImage},
	{".json", domain.ResultTable},
}

// DirStore finds artifacts in staticDir/generated_maps.
type DirStore struct {
	dir string
}

// NewDirStore creates a store rooted at the static directory.
func NewDirStore(staticDir string) *DirStore {
	return &DirStore{dir: filepath.Join(staticDir, GeneratedDir)}
}

// Find returns the first artifact named stem with a known extension.
func (s *DirStore) Find(_ context.Context, stem string) (Artifact, error) {
	for _, e := range artifactExts {
		file := stem + e.ext
		path := filepath.Join(s.dir, file)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("stat artifact: %w", err)
		}
		if info.IsDir() {
			continue
		}
		return Artifact{Kind: e.kind, File: file, Path: path}, nil
	}
	return Artifact{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, stem)
}

// CheckReadiness returns nil once the artifact directory is readable.
func (s *DirStore) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("artifact directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("artifact directory %s is not a directory", s.dir)
	}
	return nil
}

// CachedStore remembers where artifacts were found. A remembered artifact is
// re-checked on disk before it is served, so a deleted or replaced file falls
// through to the wrapped store.
type CachedStore struct {
	inner ArtifactStore
	max   int

	mu      sync.Mutex
	order   *list.List // front is most recently served
	entries map[string]*list.Element
}

// NewCachedStore creates a cache of at most maxEntries artifacts around inner.
func NewCachedStore(inner ArtifactStore, maxEntries int) *CachedStore {
	return &CachedStore{
		inner:   inner,
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *CachedStore) Find(ctx context.Context, stem string) (Artifact, error) {
	if a, ok := c.lookup(stem); ok {
		if _, err := os.Stat(a.Path); err == nil {
			return a, nil
		}
		c.forget(stem)
	}
	a, err := c.inner.Find(ctx, stem)
	if err != nil {
		return a, err
	}
	// Misses are not remembered so an artifact generated later is picked up.
	c.remember(stem, a)
	return a, nil
}

func (c *CachedStore) CheckReadiness(ctx context.Context) error {
	return c.inner.CheckReadiness(ctx)
}

type cached struct {
	stem     string
	artifact Artifact
}

func (c *CachedStore) lookup(stem string) (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[stem]
	if !ok {
		return Artifact{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).artifact, true
}

func (c *CachedStore) remember(stem string, a Artifact) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[stem]; ok {
		el.Value.(*cached).artifact = a
		c.order.MoveToFront(el)
		return
	}
	c.entries[stem] = c.order.PushFront(&cached{stem: stem, artifact: a})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cached).stem)
	}
}

func (c *CachedStore) forget(stem string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[stem]; ok {
		c.order.Remove(el)
		delete(c.entries, stem)
	}
}
