package linkedresource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/inkfold/notecore/internal/core/domain"
)

type sinkFake struct {
	mu       sync.Mutex
	attached []domain.Document
	keys     map[string]bool
	err      error
}

func newSinkFake() *sinkFake {
	return &sinkFake{keys: make(map[string]bool)}
}

func (f *sinkFake) Attach(_ context.Context, _ string, doc domain.Document) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.keys[doc.Key()] {
		return false, nil
	}
	f.keys[doc.Key()] = true
	f.attached = append(f.attached, doc)
	return true, nil
}

func (f *sinkFake) SetPreview(context.Context, string, string, string) error { return nil }

type previewFake struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *previewFake) Schedule(_ string, doc domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, doc.ExternalID)
}

func newTestServer(t *testing.T, matches string, details map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/resources":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(matches))
		default:
			id := r.URL.Path[len("/v1/resources/"):]
			detail, ok := details[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(detail))
		}
	}))
}

func TestFetchAttachesResolvedDetails(t *testing.T) {
	var gotConcept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/resources":
			gotConcept = r.URL.Query().Get("concept")
			_, _ = w.Write([]byte(`{"matches":[{"id":"42","type":"article","url":"https://r.example/42"}]}`))
		case "/v1/resources/42":
			_, _ = w.Write([]byte(`{"id":"42","title":"Eiffel Tower","previewURL":"https://img.example/42.jpg","url":"https://r.example/42"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	sink := newSinkFake()
	previews := &previewFake{}
	client := New(server.URL, sink, previews, nil, nil)

	client.Fetch(context.Background(), "Eiffel Tower", "Eiffel Tower", "note-1")

	if gotConcept != "Eiffel_Tower" {
		t.Fatalf("expected sanitized concept, got %q", gotConcept)
	}
	if len(sink.attached) != 1 {
		t.Fatalf("expected 1 attached document, got %d", len(sink.attached))
	}
	doc := sink.attached[0]
	if doc.ExternalID != "42" || doc.Source != domain.SourceLinkedResource || doc.Spot != "Eiffel Tower" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(previews.scheduled) != 1 || previews.scheduled[0] != "42" {
		t.Fatalf("expected preview scheduled for 42, got %+v", previews.scheduled)
	}
}

func TestFetchDeduplicatesIdenticalExternalIDs(t *testing.T) {
	matches := `{"matches":[{"id":"42","type":"article","url":"https://r.example/42"},{"id":"42","type":"article","url":"https://r.example/42-alt"}]}`
	details := map[string]string{
		"42": `{"id":"42","title":"Eiffel Tower","previewURL":"","url":"https://r.example/42"}`,
	}
	server := newTestServer(t, matches, details)
	defer server.Close()

	sink := newSinkFake()
	client := New(server.URL, sink, nil, nil, nil)

	client.Fetch(context.Background(), "Paris", "Paris", "note-1")

	if len(sink.attached) != 1 {
		t.Fatalf("expected exactly 1 attached document, got %d", len(sink.attached))
	}
	if sink.attached[0].ExternalID != "42" {
		t.Fatalf("unexpected document: %+v", sink.attached[0])
	}
}

func TestFetchSkipsMalformedMatches(t *testing.T) {
	matches := `{"matches":[{"id":"","type":"article","url":"https://x"},{"id":"7","type":"","url":"https://x"},{"id":"9","type":"article","url":""}]}`
	server := newTestServer(t, matches, map[string]string{})
	defer server.Close()

	sink := newSinkFake()
	client := New(server.URL, sink, nil, nil, nil)

	client.Fetch(context.Background(), "Paris", "Paris", "note-1")

	if len(sink.attached) != 0 {
		t.Fatalf("expected no attachments, got %d", len(sink.attached))
	}
}

func TestFetchSurvivesOneDetailFailing(t *testing.T) {
	matches := `{"matches":[{"id":"1","type":"article","url":"https://r/1"},{"id":"2","type":"article","url":"https://r/2"}]}`
	details := map[string]string{
		"2": `{"id":"2","title":"Louvre","previewURL":"","url":"https://r/2"}`,
	}
	server := newTestServer(t, matches, details)
	defer server.Close()

	sink := newSinkFake()
	client := New(server.URL, sink, nil, nil, nil)

	client.Fetch(context.Background(), "Paris", "Paris", "note-1")

	if len(sink.attached) != 1 || sink.attached[0].ExternalID != "2" {
		t.Fatalf("expected only the resolvable match attached, got %+v", sink.attached)
	}
}

func TestFetchAbortsSilentlyOnLookupFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := newSinkFake()
	client := New(server.URL, sink, nil, nil, nil)

	// Must not panic and must not attach anything.
	client.Fetch(context.Background(), "Paris", "Paris", "note-1")
	if len(sink.attached) != 0 {
		t.Fatalf("expected no attachments, got %d", len(sink.attached))
	}
}

func TestFetchEmptyConceptIsNoop(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		fmt.Fprint(w, `{"matches":[]}`)
	}))
	defer server.Close()

	client := New(server.URL, newSinkFake(), nil, nil, nil)
	client.Fetch(context.Background(), "   ", "", "note-1")
	if calls != 0 {
		t.Fatalf("expected no lookup for empty concept, got %d calls", calls)
	}
}
