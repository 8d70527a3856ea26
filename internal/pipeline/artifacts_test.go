package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/lightning-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

// countingStore finds every stem as a file of the same name in dir.
type countingStore struct {
	dir   string
	calls map[string]int
	err   error
}

func newCountingStore(t *testing.T, stems ...string) *countingStore {
	t.Helper()
	dir := t.TempDir()
	for _, stem := range stems {
		require.NoError(t, os.WriteFile(filepath.Join(dir, stem+".png"), []byte("png"), 0o600))
	}
	return &countingStore{dir: dir, calls: map[string]int{}}
}

func (m *countingStore) Find(_ context.Context, stem string) (Artifact, error) {
	m.calls[stem]++
	if m.err != nil {
		return Artifact{}, m.err
	}
	file := stem + ".png"
	path := filepath.Join(m.dir, file)
	if _, err := os.Stat(path); err != nil {
		return Artifact{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, stem)
	}
	return Artifact{Kind: domain.ResultImage, File: file, Path: path}, nil
}

func (m *countingStore) CheckReadiness(_ context.Context) error { return nil }

// --- DirStore tests ---

func TestDirStore_Find(t *testing.T) {
	static := t.TempDir()
	dir := filepath.Join(static, GeneratedDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte("[]"), 0o600))

	s := NewDirStore(static)

	a, err := s.Find(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, Artifact{Kind: domain.ResultImage, File: "a.png", Path: filepath.Join(dir, "a.png")}, a, "images win over tables")

	b, err := s.Find(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultTable, b.Kind)

	_, err = s.Find(context.Background(), "c")
	require.ErrorIs(t, err, ErrArtifactNotFound)

	require.NoError(t, s.CheckReadiness(context.Background()))
	require.Error(t, NewDirStore(filepath.Join(static, "nope")).CheckReadiness(context.Background()))
}

// --- CachedStore tests ---

func TestCachedStore_CacheHit(t *testing.T) {
	inner := newCountingStore(t, "a")
	cached := NewCachedStore(inner, 10)

	a1, err := cached.Find(context.Background(), "a")
	require.NoError(t, err)
	a2, err := cached.Find(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.Equal(t, 1, inner.calls["a"], "should only call inner once")
}

func TestCachedStore_MissesAreNotCached(t *testing.T) {
	inner := newCountingStore(t)
	inner.err = ErrArtifactNotFound
	cached := NewCachedStore(inner, 10)

	_, err := cached.Find(context.Background(), "a")
	require.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = cached.Find(context.Background(), "a")
	require.ErrorIs(t, err, ErrArtifactNotFound)

	assert.Equal(t, 2, inner.calls["a"])
}

func TestCachedStore_DeletedArtifactIsNotServed(t *testing.T) {
	inner := newCountingStore(t, "a")
	cached := NewCachedStore(inner, 10)

	a, err := cached.Find(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, os.Remove(a.Path))

	_, err = cached.Find(context.Background(), "a")
	require.ErrorIs(t, err, ErrArtifactNotFound)
	assert.Equal(t, 2, inner.calls["a"])
}

func TestCachedStore_ReplacedArtifactIsFoundAgain(t *testing.T) {
	static := t.TempDir()
	dir := filepath.Join(static, GeneratedDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o600))
	cached := NewCachedStore(NewDirStore(static), 10)

	a, err := cached.Find(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultImage, a.Kind)

	require.NoError(t, os.Remove(a.Path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("[]"), 0o600))

	a, err = cached.Find(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultTable, a.Kind)
	assert.Equal(t, "a.json", a.File)
}

func TestCachedStore_EvictsLeastRecentlyServed(t *testing.T) {
	inner := newCountingStore(t, "a", "b", "c")
	cached := NewCachedStore(inner, 2)
	ctx := context.Background()

	for _, stem := range []string{"a", "b", "a", "c", "a", "b"} {
		_, err := cached.Find(ctx, stem)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.calls["a"], "a stays cached while it keeps being served")
	assert.Equal(t, 2, inner.calls["b"], "b was evicted by c")
	assert.Equal(t, 1, inner.calls["c"])
}

func TestCachedStore_ZeroSizeDisablesCaching(t *testing.T) {
	inner := newCountingStore(t, "a")
	cached := NewCachedStore(inner, 0)

	for range 2 {
		_, err := cached.Find(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls["a"])
}
