package objectstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bookforge/internal/objectstore"
	"bookforge/internal/services"
	"bookforge/internal/testsupport"
)

type fakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string][]byte
	requests []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	// Bucket requests arrive as "/books/"; object requests as "/books/key".
	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case len(parts) == 2 && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"fake-etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestNewDisabledReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	uploader, err := objectstore.New(cfg.Storage)
	if err != nil || uploader != nil {
		t.Fatalf("expected nil uploader, got %v %v", uploader, err)
	}
}

func TestNewRejectsSchemeInEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("http://localhost:9000", "books"))
	_, err := objectstore.New(cfg.Storage)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUploadFileCreatesBucketAndObject(t *testing.T) {
	fake := newFakeS3()
	server := httptest.NewServer(fake)
	defer server.Close()

	endpoint := strings.TrimPrefix(server.URL, "http://")
	cfg := testsupport.NewConfig(t, testsupport.WithStorage(endpoint, "books"))
	cfg.Storage.UseSSL = false
	cfg.Storage.Prefix = "orders"

	uploader, err := objectstore.New(cfg.Storage)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := []byte("PK fake archive bytes")
	archive := filepath.Join(t.TempDir(), "RWY-ABC123.zip")
	if err := os.WriteFile(archive, payload, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	upload, err := uploader.UploadFile(context.Background(), archive, "RWY-ABC123")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if upload.Key != "orders/RWY-ABC123/RWY-ABC123.zip" || upload.Bucket != "books" {
		t.Fatalf("unexpected upload %+v", upload)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.buckets["books"] {
		t.Fatalf("bucket was not created; requests %v", fake.requests)
	}
	body, ok := fake.objects["/books/orders/RWY-ABC123/RWY-ABC123.zip"]
	if !ok {
		t.Fatalf("object not stored; requests %v", fake.requests)
	}
	if !bytes.Contains(body, payload) {
		t.Fatalf("stored body does not contain archive bytes: %q", body)
	}
}

func TestBucketExistsTracksBucketRequests(t *testing.T) {
	fake := newFakeS3()
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStorage(strings.TrimPrefix(server.URL, "http://"), "books"))
	cfg.Storage.UseSSL = false
	uploader, err := objectstore.New(cfg.Storage)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	exists, err := uploader.BucketExists(context.Background())
	if err != nil || exists {
		t.Fatalf("expected missing bucket, got %v %v; requests %v", exists, err, fake.requests)
	}
	if err := uploader.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v; requests %v", err, fake.requests)
	}
	exists, err = uploader.BucketExists(context.Background())
	if err != nil || !exists {
		t.Fatalf("expected bucket after creation, got %v %v; requests %v", exists, err, fake.requests)
	}
}

func TestUploadFileMissingArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("127.0.0.1:1", "books"))
	uploader, err := objectstore.New(cfg.Storage)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = uploader.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), "RWY-1")
	if !errors.Is(err, services.ErrPackaging) {
		t.Fatalf("expected packaging error, got %v", err)
	}
}
