package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// fakeGCSAPI serves the JSON API endpoints GCS uses for listing,
// metadata lookups and uploads.
type fakeGCSAPI struct {
	mu      sync.Mutex
	uploads int
}

func (f *fakeGCSAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/"):
		f.mu.Lock()
		f.uploads++
		f.mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"bucket": "transcripts", "name": r.URL.Query().Get("name")})

	case r.URL.Path == "/storage/v1/b/transcripts/o":
		q := r.URL.Query()
		if q.Get("delimiter") != "/" {
			http.Error(w, "expected delimiter listing", http.StatusBadRequest)
			return
		}
		switch q.Get("pageToken") {
		case "":
			writeJSON(w, http.StatusOK, map[string]any{
				"kind":          "storage#objects",
				"prefixes":      []string{"a_20240101-000000/", "b_20240102-000000/"},
				"nextPageToken": "page-2",
			})
		case "page-2":
			writeJSON(w, http.StatusOK, map[string]any{
				"kind":     "storage#objects",
				"prefixes": []string{"c_20240103-000000/"},
			})
		default:
			http.Error(w, "unknown page", http.StatusBadRequest)
		}

	case strings.HasPrefix(r.URL.Path, "/storage/v1/b/transcripts/o/"):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": http.StatusNotFound, "message": "No such object"},
		})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGCSAPI) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestGCS(t *testing.T, api http.Handler) *GCS {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	g, err := NewGCS(context.Background(), "transcripts",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("NewGCS: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGCS_PrefixesFollowsPages(t *testing.T) {
	g := newTestGCS(t, &fakeGCSAPI{})

	got, err := g.Prefixes(context.Background())
	if err != nil {
		t.Fatalf("Prefixes: %v", err)
	}
	want := []string{"a_20240101-000000/", "b_20240102-000000/", "c_20240103-000000/"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Prefixes = %v, want %v", got, want)
	}
}

func TestGCS_StatMissing(t *testing.T) {
	g := newTestGCS(t, &fakeGCSAPI{})

	_, err := g.Stat(context.Background(), "missing/result.txt")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

type brokenReader struct {
	sent bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "partial audio"), nil
	}
	return 0, errors.New("client went away")
}

func TestGCS_UploadAbortsOnReadError(t *testing.T) {
	api := &fakeGCSAPI{}
	g := newTestGCS(t, api)

	_, err := g.Upload(context.Background(), "talk_20240102-150405/talk.mp3", &brokenReader{}, "audio/mpeg")
	if err == nil {
		t.Fatal("expected error from a failed copy")
	}
	if !strings.Contains(err.Error(), "client went away") {
		t.Errorf("err = %v, want the read error", err)
	}
	if n := api.uploadCount(); n != 0 {
		t.Errorf("server received %d uploads, want the truncated object never sent", n)
	}
}
