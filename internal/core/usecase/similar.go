package usecase

import (
	"context"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// Ranker is the similarity engine contract the use case depends on.
type Ranker interface {
	SimilarNotes(ctx context.Context, target *domain.Note, corpus ports.NoteCorpus, maxResults int) ([]domain.SimilarityResult, error)
}

// SimilarNotesUseCase resolves the target note and delegates ranking to
// the engine over the full corpus.
type SimilarNotesUseCase struct {
	repo        ports.NoteRepository
	corpus      ports.NoteCorpus
	engine      Ranker
	defaultTopK int
}

func NewSimilarNotesUseCase(repo ports.NoteRepository, corpus ports.NoteCorpus, engine Ranker, defaultTopK int) *SimilarNotesUseCase {
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &SimilarNotesUseCase{
		repo:        repo,
		corpus:      corpus,
		engine:      engine,
		defaultTopK: defaultTopK,
	}
}

func (uc *SimilarNotesUseCase) SimilarNotes(ctx context.Context, noteID string, maxResults int) ([]domain.SimilarityResult, error) {
	if maxResults <= 0 {
		maxResults = uc.defaultTopK
	}
	target, err := uc.repo.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return uc.engine.SimilarNotes(ctx, target, uc.corpus, maxResults)
}
