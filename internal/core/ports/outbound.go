package ports

import (
	"context"
	"io"

	"github.com/inkfold/notecore/internal/core/domain"
)

// RecognitionBackend turns a handwriting image into structured text.
// A nil result with a nil error is treated as a recognition failure by
// the caller.
type RecognitionBackend interface {
	Recognize(ctx context.Context, image []byte) (*domain.RecognizedText, error)
}

// QuotaService tracks remaining calls for the rate-limited high-fidelity
// tier. RemainingCalls returns 0 on any transport or parse failure;
// quota-unknown degrades to quota-exhausted. ReportUsage is best-effort:
// failures are logged, never surfaced, never retried.
type QuotaService interface {
	RemainingCalls(ctx context.Context) int
	ReportUsage(ctx context.Context, deviceLabel, service string)
}

// ConceptExtractor pulls lookup-worthy concepts out of recognized text.
type ConceptExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.Concept, error)
}

// AnnotationSource is one enrichment service client. Fetch reports nothing
// back: success is observed only via documents landing on the note through
// the sink. Transport and parse failures abort silently (log only).
type AnnotationSource interface {
	Name() string
	Fetch(ctx context.Context, concept, spotLabel, noteID string)
}

// PlaceClassifier disambiguates whether a concept names a place before the
// knowledge-graph source commits to full enrichment. A failed or
// non-matching classification resolves to false.
type PlaceClassifier interface {
	IsPlace(ctx context.Context, name string) bool
}

// DocumentSink owns note mutation. Attach deduplicates by document key and
// serializes concurrent attach attempts per note; attaching to a deleted
// note is a harmless no-op reported as (false, nil).
type DocumentSink interface {
	Attach(ctx context.Context, noteID string, doc domain.Document) (bool, error)
	SetPreview(ctx context.Context, noteID, docKey, previewPath string) error
}

// PreviewFetcher schedules a lower-priority preview image download for an
// attached document. Failures leave the preview unset.
type PreviewFetcher interface {
	Schedule(noteID string, doc domain.Document)
}

// NoteRepository persists and reads note state.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	UpdateText(ctx context.Context, id, text string) error
	SaveDocuments(ctx context.Context, id string, docs []domain.Document) error
}

// NoteCorpus streams the note corpus for similarity scans. Iterate is
// restartable per call and must not materialize every note eagerly.
type NoteCorpus interface {
	Iterate(ctx context.Context, fn func(locator string, note *domain.Note) error) error
}

// TagSnapshotStore round-trips the tag repository snapshot.
type TagSnapshotStore interface {
	Save(ctx context.Context, snapshot []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// MessageQueue publishes/consumes note-recognized events.
type MessageQueue interface {
	PublishNoteRecognized(ctx context.Context, noteID string) error
	SubscribeNoteRecognized(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores preview images and snapshots.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
