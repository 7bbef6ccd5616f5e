package nlp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkfold/notecore/internal/core/domain"
)

func TestExtractParsesConcepts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/extract" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"concepts":[{"text":"Paris","label":"PLACE"},{"text":"  ","label":"noise"},{"text":"watercolor","label":""}]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	concepts, err := client.Extract(context.Background(), "a watercolor of Paris")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(concepts) != 2 {
		t.Fatalf("expected 2 concepts, got %d", len(concepts))
	}
	if concepts[0].Text != "Paris" || concepts[0].Label != "place" {
		t.Fatalf("unexpected first concept: %+v", concepts[0])
	}
	if concepts[1].Text != "watercolor" {
		t.Fatalf("unexpected second concept: %+v", concepts[1])
	}
}

func TestExtractEmptyTextSkipsCall(t *testing.T) {
	client := New("http://localhost:1")
	concepts, err := client.Extract(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if concepts != nil {
		t.Fatalf("expected nil concepts, got %+v", concepts)
	}
}

func TestExtractWrapsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Extract(context.Background(), "some text")
	if !domain.IsKind(err, domain.ErrTransport) {
		t.Fatalf("expected transport kind, got %v", err)
	}
}
