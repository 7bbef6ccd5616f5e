// Package notebook mediates all document mutation on notes. Enrichment
// sources run concurrently and report through a single sink so that
// attach/dedup/persist is serialized per note.
package notebook

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// Notebook implements ports.DocumentSink on top of the note repository.
// A per-note mutex guarantees that concurrent attaches for the same note
// observe each other; attaches for different notes never contend.
type Notebook struct {
	repo ports.NoteRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(repo ports.NoteRepository) *Notebook {
	return &Notebook{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

func (n *Notebook) noteLock(noteID string) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()
	lock, ok := n.locks[noteID]
	if !ok {
		lock = &sync.Mutex{}
		n.locks[noteID] = lock
	}
	return lock
}

// Attach loads the note, appends the document unless an equivalent one is
// already present, and persists the updated document list. Attaching to a
// note that no longer exists is a harmless no-op: enrichment races note
// deletion by design of the callers, so the document is discarded with a
// log line and (false, nil).
func (n *Notebook) Attach(ctx context.Context, noteID string, doc domain.Document) (bool, error) {
	lock := n.noteLock(noteID)
	lock.Lock()
	defer lock.Unlock()

	note, err := n.repo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			slog.Info("document_discarded_note_gone", "note_id", noteID, "doc_key", doc.Key())
			return false, nil
		}
		return false, err
	}

	if !note.Attach(doc) {
		return false, nil
	}
	if err := n.repo.SaveDocuments(ctx, noteID, note.Documents); err != nil {
		return false, err
	}
	return true, nil
}

// SetPreview records the stored preview path on the document identified by
// docKey. A note or document that disappeared in the meantime is a no-op.
func (n *Notebook) SetPreview(ctx context.Context, noteID, docKey, previewPath string) error {
	lock := n.noteLock(noteID)
	lock.Lock()
	defer lock.Unlock()

	note, err := n.repo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return nil
		}
		return err
	}

	updated := false
	for i := range note.Documents {
		if note.Documents[i].Key() == docKey {
			note.Documents[i].PreviewPath = previewPath
			updated = true
			break
		}
	}
	if !updated {
		return nil
	}
	return n.repo.SaveDocuments(ctx, noteID, note.Documents)
}
