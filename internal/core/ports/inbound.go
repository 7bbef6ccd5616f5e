package ports

import (
	"context"

	"github.com/inkfold/notecore/internal/core/domain"
)

// NoteRecognizer is the inbound contract for recognition orchestration.
type NoteRecognizer interface {
	Recognize(ctx context.Context, noteID string, image []byte, opts domain.RecognizeOptions) (*domain.RecognizedText, error)
}

// NoteEnricher is the inbound contract for asynchronous note enrichment.
type NoteEnricher interface {
	EnrichByID(ctx context.Context, noteID string) error
}

// SimilarNotesFinder ranks corpus notes against a target note.
type SimilarNotesFinder interface {
	SimilarNotes(ctx context.Context, noteID string, maxResults int) ([]domain.SimilarityResult, error)
}
