package imagefetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
)

type storageFake struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key] = body
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

type sinkFake struct {
	mu       sync.Mutex
	previews map[string]string // docKey -> previewPath
}

func newSinkFake() *sinkFake {
	return &sinkFake{previews: make(map[string]string)}
}

func (f *sinkFake) Attach(context.Context, string, domain.Document) (bool, error) {
	return true, nil
}

func (f *sinkFake) SetPreview(_ context.Context, _ string, docKey, previewPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews[docKey] = previewPath
	return nil
}

func (f *sinkFake) previewFor(docKey string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previews[docKey]
}

func TestScheduleDownloadsAndRecordsPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	storage := newStorageFake()
	sink := newSinkFake()
	fetcher := New(storage, sink, 100, 10, nil)

	doc := domain.Document{
		Source:     domain.SourceKnowledgeGraph,
		ExternalID: "Q243",
		PreviewURL: server.URL + "/q243.jpg",
	}
	fetcher.Schedule("note-1", doc)
	fetcher.Wait()

	path := sink.previewFor(doc.Key())
	if path == "" {
		t.Fatal("expected preview path recorded on the document")
	}
	if !strings.HasPrefix(path, "previews/note-1/") || !strings.HasSuffix(path, ".jpg") {
		t.Fatalf("unexpected preview key %q", path)
	}
	if string(storage.saved[path]) != "image-bytes" {
		t.Fatalf("stored bytes mismatch for %q", path)
	}
}

func TestScheduleRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		failing := calls == 1
		mu.Unlock()
		if failing {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	storage := newStorageFake()
	sink := newSinkFake()
	fetcher := New(storage, sink, 100, 10, nil)

	doc := domain.Document{Source: domain.SourceLinkedResource, ExternalID: "7", PreviewURL: server.URL + "/7.png"}
	fetcher.Schedule("note-1", doc)
	fetcher.Wait()

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if sink.previewFor(doc.Key()) == "" {
		t.Fatal("expected preview recorded after retry succeeded")
	}
}

func TestScheduleLeavesPreviewUnsetOnPersistentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	storage := newStorageFake()
	sink := newSinkFake()
	failures := &failureCounter{}
	fetcher := New(storage, sink, 100, 10, failures)

	doc := domain.Document{Source: domain.SourceLinkedResource, ExternalID: "9", PreviewURL: server.URL + "/9.png"}
	fetcher.Schedule("note-1", doc)
	fetcher.Wait()

	if sink.previewFor(doc.Key()) != "" {
		t.Fatal("expected no preview path on persistent failure")
	}
	if len(storage.saved) != 0 {
		t.Fatalf("expected nothing stored, got %d objects", len(storage.saved))
	}
	if failures.count() != 1 {
		t.Fatalf("expected 1 failure observed, got %d", failures.count())
	}
}

func TestScheduleWithoutPreviewURLIsNoop(t *testing.T) {
	storage := newStorageFake()
	sink := newSinkFake()
	fetcher := New(storage, sink, 100, 10, nil)

	fetcher.Schedule("note-1", domain.Document{Source: domain.SourceKnowledgeGraph, ExternalID: "Q1"})
	fetcher.Wait()

	time.Sleep(10 * time.Millisecond)
	if len(storage.saved) != 0 {
		t.Fatalf("expected no downloads, got %d", len(storage.saved))
	}
}

type failureCounter struct {
	mu sync.Mutex
	n  int
}

func (c *failureCounter) PreviewFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *failureCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
