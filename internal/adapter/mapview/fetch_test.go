package mapview

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	f, err := NewFetcher(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return f
}

func TestFetcher_Resolve(t *testing.T) {
	f := testFetcher(t, "http://maps.local:8080")

	got, err := f.Resolve("/static/generated_maps/a.png?t=1")
	require.NoError(t, err)
	assert.Equal(t, "http://maps.local:8080/static/generated_maps/a.png?t=1", got)

	got, err = f.Resolve("https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", got)
}

func TestFetcher_Download_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/static/generated_maps/overlay.png", r.URL.Path)
		assert.Equal(t, "1700000000000", r.URL.Query().Get("t"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "out")
	path, err := testFetcher(t, srv.URL).Download(context.Background(), "/static/generated_maps/overlay.png?t=1700000000000", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "overlay.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestFetcher_Download_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(t, srv.URL).Download(context.Background(), "/static/a.png", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetcher_Download_NoFileName(t *testing.T) {
	_, err := testFetcher(t, "http://localhost").Download(context.Background(), "/", t.TempDir())
	require.Error(t, err)
}

func TestFetcher_Download_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testFetcher(t, srv.URL).Download(ctx, "/a.png", t.TempDir())
	require.Error(t, err)
}
