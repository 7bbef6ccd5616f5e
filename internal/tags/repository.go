// Package tags owns the global tag set and the many-to-many tag/note
// association. The repository is an in-memory index; a snapshot store
// persists it best-effort so tags survive restarts.
package tags

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// Repository keeps tags unique by title and maintains a bidirectional
// note/tag index so deletion does not rescan every note. All methods are
// safe for concurrent use.
type Repository struct {
	mu       sync.Mutex
	byTitle  map[string]domain.Tag
	noteTags map[string][]string            // note ID -> tag titles, insertion order
	tagNotes map[string]map[string]struct{} // tag title -> note IDs

	store ports.TagSnapshotStore
}

func NewRepository(store ports.TagSnapshotStore) *Repository {
	return &Repository{
		byTitle:  make(map[string]domain.Tag),
		noteTags: make(map[string][]string),
		tagNotes: make(map[string]map[string]struct{}),
		store:    store,
	}
}

// Restore loads the persisted snapshot, if any. A missing or unreadable
// snapshot leaves the repository empty.
func (r *Repository) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	raw, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	snapshot, err := decodeSnapshot(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTitle = make(map[string]domain.Tag)
	r.noteTags = make(map[string][]string)
	r.tagNotes = make(map[string]map[string]struct{})
	for _, tag := range snapshot.Tags {
		r.byTitle[tag.Title] = tag
	}
	for noteID, titles := range snapshot.NoteTags {
		for _, title := range titles {
			r.registerLocked(domain.NewTag(title, domain.TagColor{}))
			r.linkLocked(noteID, title)
		}
	}
	return nil
}

// Add inserts tag into the global set. It returns false without touching
// the stored color when a tag with the same title already exists.
func (r *Repository) Add(tag domain.Tag) bool {
	tag = domain.NewTag(tag.Title, tag.Color)

	r.mu.Lock()
	if _, exists := r.byTitle[tag.Title]; exists {
		r.mu.Unlock()
		return false
	}
	r.byTitle[tag.Title] = tag
	r.mu.Unlock()

	r.persist()
	return true
}

// Delete removes tag from the global set and strips its title from every
// note association. Returns false when the tag is unknown.
func (r *Repository) Delete(tag domain.Tag) bool {
	r.mu.Lock()
	if _, exists := r.byTitle[tag.Title]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.byTitle, tag.Title)
	for noteID := range r.tagNotes[tag.Title] {
		r.noteTags[noteID] = removeTitle(r.noteTags[noteID], tag.Title)
		if len(r.noteTags[noteID]) == 0 {
			delete(r.noteTags, noteID)
		}
	}
	delete(r.tagNotes, tag.Title)
	r.mu.Unlock()

	r.persist()
	return true
}

// AddToNote registers tag globally if needed, then appends its title to
// the note's list. Returns false when the note already carries the title.
func (r *Repository) AddToNote(tag domain.Tag, noteID string) bool {
	tag = domain.NewTag(tag.Title, tag.Color)

	r.mu.Lock()
	r.registerLocked(tag)
	if hasTitle(r.noteTags[noteID], tag.Title) {
		r.mu.Unlock()
		return false
	}
	r.linkLocked(noteID, tag.Title)
	r.mu.Unlock()

	r.persist()
	return true
}

// RemoveFromNote removes the tag title from the note's list and stores
// the filtered list back. Returns false when the note has no tags or
// doesn't carry the title.
func (r *Repository) RemoveFromNote(tag domain.Tag, noteID string) bool {
	r.mu.Lock()
	titles, ok := r.noteTags[noteID]
	if !ok || !hasTitle(titles, tag.Title) {
		r.mu.Unlock()
		return false
	}
	filtered := removeTitle(titles, tag.Title)
	if len(filtered) == 0 {
		delete(r.noteTags, noteID)
	} else {
		r.noteTags[noteID] = filtered
	}
	if notes, ok := r.tagNotes[tag.Title]; ok {
		delete(notes, noteID)
		if len(notes) == 0 {
			delete(r.tagNotes, tag.Title)
		}
	}
	r.mu.Unlock()

	r.persist()
	return true
}

// SetNoteTags registers every tag globally, then replaces the note's
// title list with exactly the given tags, in given order.
func (r *Repository) SetNoteTags(tagList []domain.Tag, noteID string) {
	r.mu.Lock()
	for _, old := range r.noteTags[noteID] {
		if notes, ok := r.tagNotes[old]; ok {
			delete(notes, noteID)
			if len(notes) == 0 {
				delete(r.tagNotes, old)
			}
		}
	}
	delete(r.noteTags, noteID)

	for _, tag := range tagList {
		tag = domain.NewTag(tag.Title, tag.Color)
		r.registerLocked(tag)
		if !hasTitle(r.noteTags[noteID], tag.Title) {
			r.linkLocked(noteID, tag.Title)
		}
	}
	r.mu.Unlock()

	r.persist()
}

// NoteTags returns the globally registered tags whose titles the note
// carries, sorted by title ascending.
func (r *Repository) NoteTags(noteID string) []domain.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := r.noteTags[noteID]
	out := make([]domain.Tag, 0, len(titles))
	for _, title := range titles {
		if tag, ok := r.byTitle[title]; ok {
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// NoteTagTitles returns the note's tag titles in association order. Used
// by the similarity engine, which only needs the raw titles.
func (r *Repository) NoteTagTitles(noteID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.noteTags[noteID]...)
}

// All returns every tag sorted by title ascending.
func (r *Repository) All() []domain.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Tag, 0, len(r.byTitle))
	for _, tag := range r.byTitle {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (r *Repository) registerLocked(tag domain.Tag) {
	if _, exists := r.byTitle[tag.Title]; !exists {
		r.byTitle[tag.Title] = tag
	}
}

func (r *Repository) linkLocked(noteID, title string) {
	r.noteTags[noteID] = append(r.noteTags[noteID], title)
	if r.tagNotes[title] == nil {
		r.tagNotes[title] = make(map[string]struct{})
	}
	r.tagNotes[title][noteID] = struct{}{}
}

// persist writes the snapshot best-effort. A failed write is logged and
// never surfaced; the in-memory state remains authoritative.
func (r *Repository) persist() {
	if r.store == nil {
		return
	}
	r.mu.Lock()
	snapshot := snapshotData{
		Tags:     make([]domain.Tag, 0, len(r.byTitle)),
		NoteTags: make(map[string][]string, len(r.noteTags)),
	}
	for _, tag := range r.byTitle {
		snapshot.Tags = append(snapshot.Tags, tag)
	}
	sort.Slice(snapshot.Tags, func(i, j int) bool { return snapshot.Tags[i].Title < snapshot.Tags[j].Title })
	for noteID, titles := range r.noteTags {
		snapshot.NoteTags[noteID] = append([]string(nil), titles...)
	}
	r.mu.Unlock()

	raw, err := encodeSnapshot(snapshot)
	if err != nil {
		slog.Warn("tag_snapshot_encode_failed", "error", err)
		return
	}
	if err := r.store.Save(context.Background(), raw); err != nil {
		slog.Warn("tag_snapshot_save_failed", "error", err)
	}
}

func hasTitle(titles []string, title string) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}

func removeTitle(titles []string, title string) []string {
	out := titles[:0]
	for _, t := range titles {
		if t != title {
			out = append(out, t)
		}
	}
	return out
}
