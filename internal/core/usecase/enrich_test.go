package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

type extractorFake struct {
	concepts []domain.Concept
	err      error
}

func (f *extractorFake) Extract(context.Context, string) ([]domain.Concept, error) {
	return f.concepts, f.err
}

type sourceFake struct {
	name    string
	mu      sync.Mutex
	fetched []string
}

func (f *sourceFake) Name() string { return f.name }

func (f *sourceFake) Fetch(_ context.Context, concept, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, concept)
}

func (f *sourceFake) fetchedConcepts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

type placeFake struct {
	places map[string]bool
}

func (f *placeFake) IsPlace(_ context.Context, name string) bool { return f.places[name] }

func noteRepoWithText(id, text string) *noteRepoFake {
	repo := newNoteRepoFake(id)
	repo.notes[id].Text = text
	return repo
}

func TestEnrichFansOutConceptsToAllSources(t *testing.T) {
	repo := noteRepoWithText("note-1", "visited the Louvre and sketched")
	extractor := &extractorFake{concepts: []domain.Concept{
		{Text: "Louvre", Label: "org"},
		{Text: "sketching", Label: "activity"},
	}}
	kg := &sourceFake{name: "knowledge-graph"}
	linked := &sourceFake{name: "linked-resource"}

	uc := NewEnrichNoteUseCase(repo, extractor, []ports.AnnotationSource{kg, linked}, nil)
	if err := uc.EnrichByID(context.Background(), "note-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, source := range []*sourceFake{kg, linked} {
		got := source.fetchedConcepts()
		if len(got) != 2 {
			t.Fatalf("expected both concepts dispatched to %s, got %+v", source.name, got)
		}
	}
}

func TestEnrichRejectsEmptyText(t *testing.T) {
	repo := noteRepoWithText("note-1", "   ")
	uc := NewEnrichNoteUseCase(repo, &extractorFake{}, nil, nil)

	err := uc.EnrichByID(context.Background(), "note-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
}

func TestEnrichSurfacesExtractorFailure(t *testing.T) {
	repo := noteRepoWithText("note-1", "some text")
	uc := NewEnrichNoteUseCase(repo, &extractorFake{err: errors.New("nlp down")}, nil, nil)

	if err := uc.EnrichByID(context.Background(), "note-1"); err == nil {
		t.Fatal("expected extractor failure surfaced")
	}
}

func TestEnrichUnknownNote(t *testing.T) {
	uc := NewEnrichNoteUseCase(newNoteRepoFake(), &extractorFake{}, nil, nil)

	err := uc.EnrichByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected note-not-found, got %v", err)
	}
}

func TestPlaceGatingSkipsKnowledgeGraphOnly(t *testing.T) {
	repo := noteRepoWithText("note-1", "met Paris Hilton in town")
	extractor := &extractorFake{concepts: []domain.Concept{
		{Text: "Paris Hilton", Label: "place"},
		{Text: "Paris", Label: "place"},
	}}
	kg := &sourceFake{name: "knowledge-graph"}
	linked := &sourceFake{name: "linked-resource"}
	places := &placeFake{places: map[string]bool{"Paris": true}}

	uc := NewEnrichNoteUseCase(repo, extractor, []ports.AnnotationSource{kg, linked}, places)
	if err := uc.EnrichByID(context.Background(), "note-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kgGot := kg.fetchedConcepts()
	if len(kgGot) != 1 || kgGot[0] != "Paris" {
		t.Fatalf("expected only confirmed place dispatched to knowledge-graph, got %+v", kgGot)
	}
	if got := linked.fetchedConcepts(); len(got) != 2 {
		t.Fatalf("expected linked-resource ungated, got %+v", got)
	}
}

func TestEnrichNoConceptsIsNoop(t *testing.T) {
	repo := noteRepoWithText("note-1", "text")
	kg := &sourceFake{name: "knowledge-graph"}

	uc := NewEnrichNoteUseCase(repo, &extractorFake{}, []ports.AnnotationSource{kg}, nil)
	if err := uc.EnrichByID(context.Background(), "note-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := kg.fetchedConcepts(); len(got) != 0 {
		t.Fatalf("expected no fetches, got %+v", got)
	}
}
