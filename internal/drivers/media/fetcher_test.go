package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchUsesContentTypeHeaderAndURLBasename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	f := New("test-agent/1.0", 5*time.Second)
	filename, mimeType, size, err := f.Fetch(context.Background(), srv.URL+"/thumbs/abc.jpg")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if filename != "abc.jpg" {
		t.Fatalf("filename = %q, want abc.jpg", filename)
	}
	if mimeType != "image/jpeg" {
		t.Fatalf("mimeType = %q, want image/jpeg", mimeType)
	}
	if size != int64(len("fake-jpeg-bytes")) {
		t.Fatalf("size = %d, want %d", size, len("fake-jpeg-bytes"))
	}
}

func TestFetchSniffsContentTypeWhenHeaderMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>not really an image</body></html>"))
	}))
	defer srv.Close()

	f := New("", 5*time.Second)
	_, mimeType, _, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !strings.HasPrefix(mimeType, "text/html") {
		t.Fatalf("mimeType = %q, want sniffed text/html", mimeType)
	}
}

func TestFetchGeneratesFilenameWhenURLHasNoBasename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := New("", 5*time.Second)
	filename, _, _, err := f.Fetch(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if filename == "" || filename == "/" {
		t.Fatalf("filename = %q, want a generated non-empty name", filename)
	}
}

func TestFetchReturnsErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New("", 5*time.Second)
	_, _, _, err := f.Fetch(context.Background(), srv.URL+"/missing.jpg")
	if err == nil {
		t.Fatal("Fetch() error = nil, want an error for a 404 response")
	}
}
