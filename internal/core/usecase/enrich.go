package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// EnrichNoteUseCase fans a note's extracted concepts out to the
// configured annotation sources. It imposes no ordering and aggregates
// no outcomes: the note's document list converges as attaches land.
type EnrichNoteUseCase struct {
	repo      ports.NoteRepository
	extractor ports.ConceptExtractor
	sources   []ports.AnnotationSource
	places    ports.PlaceClassifier
}

func NewEnrichNoteUseCase(
	repo ports.NoteRepository,
	extractor ports.ConceptExtractor,
	sources []ports.AnnotationSource,
	places ports.PlaceClassifier,
) *EnrichNoteUseCase {
	return &EnrichNoteUseCase{
		repo:      repo,
		extractor: extractor,
		sources:   sources,
		places:    places,
	}
}

// EnrichByID extracts concepts from the note's recognized text and runs
// every concept against every source. The call returns when all fetches
// have run to completion; individual fetch failures never surface here.
func (uc *EnrichNoteUseCase) EnrichByID(ctx context.Context, noteID string) error {
	note, err := uc.repo.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(note.Text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "enrich note", fmt.Errorf("note %s has no recognized text", noteID))
	}

	concepts, err := uc.extractor.Extract(ctx, note.Text)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		slog.Info("enrich_no_concepts", "note_id", noteID)
		return nil
	}

	var wg sync.WaitGroup
	for _, concept := range concepts {
		for _, source := range uc.sources {
			if uc.skip(ctx, source, concept) {
				continue
			}
			wg.Add(1)
			go func(source ports.AnnotationSource, concept domain.Concept) {
				defer wg.Done()
				source.Fetch(ctx, concept.Text, concept.Text, noteID)
			}(source, concept)
		}
	}
	wg.Wait()
	return nil
}

// skip gates place-labeled concepts on the classifier before the
// knowledge-graph source commits to full enrichment. A failed or
// non-matching classification skips that one fetch; other sources are
// never gated.
func (uc *EnrichNoteUseCase) skip(ctx context.Context, source ports.AnnotationSource, concept domain.Concept) bool {
	if uc.places == nil || concept.Label != "place" {
		return false
	}
	if source.Name() != string(domain.SourceKnowledgeGraph) {
		return false
	}
	if uc.places.IsPlace(ctx, concept.Text) {
		return false
	}
	slog.Info("concept_place_rejected", "concept", concept.Text)
	return true
}
