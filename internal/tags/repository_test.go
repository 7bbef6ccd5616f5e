package tags

import (
	"context"
	"sync"
	"testing"

	"github.com/inkfold/notecore/internal/core/domain"
)

var (
	blue = domain.TagColor{Blue: 1}
	red  = domain.TagColor{Red: 1}
)

type snapshotStoreFake struct {
	mu   sync.Mutex
	raw  []byte
	errs int
}

func (f *snapshotStoreFake) Save(_ context.Context, snapshot []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append([]byte(nil), snapshot...)
	return nil
}

func (f *snapshotStoreFake) Load(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw, nil
}

func TestAddIsIdempotentByTitle(t *testing.T) {
	repo := NewRepository(nil)

	if !repo.Add(domain.NewTag("Work", blue)) {
		t.Fatal("expected first add to succeed")
	}
	if repo.Add(domain.NewTag("Work", red)) {
		t.Fatal("expected second add with same title to be a no-op")
	}

	all := repo.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(all))
	}
	if all[0].Title != "Work" || all[0].Color != blue {
		t.Fatalf("expected original color kept, got %+v", all[0])
	}
}

func TestAddCoercesEmptyTitle(t *testing.T) {
	repo := NewRepository(nil)
	repo.Add(domain.NewTag("", red))

	all := repo.All()
	if len(all) != 1 || all[0].Title != domain.UntitledTagTitle {
		t.Fatalf("expected untitled sentinel, got %+v", all)
	}
}

func TestDeleteStripsTagFromEveryNote(t *testing.T) {
	repo := NewRepository(nil)
	work := domain.NewTag("Work", blue)
	home := domain.NewTag("Home", red)

	repo.AddToNote(work, "note-1")
	repo.AddToNote(home, "note-1")
	repo.AddToNote(work, "note-2")

	if !repo.Delete(work) {
		t.Fatal("expected delete to succeed")
	}
	if repo.Delete(work) {
		t.Fatal("expected second delete to report unknown tag")
	}

	if tagsFor := repo.NoteTags("note-1"); len(tagsFor) != 1 || tagsFor[0].Title != "Home" {
		t.Fatalf("expected only Home on note-1, got %+v", tagsFor)
	}
	if tagsFor := repo.NoteTags("note-2"); len(tagsFor) != 0 {
		t.Fatalf("expected no tags on note-2, got %+v", tagsFor)
	}
}

func TestAddToNoteRegistersGloballyAndRejectsDuplicates(t *testing.T) {
	repo := NewRepository(nil)
	work := domain.NewTag("Work", blue)

	if !repo.AddToNote(work, "note-1") {
		t.Fatal("expected first association to succeed")
	}
	if repo.AddToNote(work, "note-1") {
		t.Fatal("expected duplicate association to be a no-op")
	}

	all := repo.All()
	if len(all) != 1 || all[0].Title != "Work" {
		t.Fatalf("expected implicit global registration, got %+v", all)
	}
}

func TestRemoveFromNotePersistsFilteredList(t *testing.T) {
	repo := NewRepository(nil)
	work := domain.NewTag("Work", blue)
	home := domain.NewTag("Home", red)
	repo.AddToNote(work, "note-1")
	repo.AddToNote(home, "note-1")

	if !repo.RemoveFromNote(work, "note-1") {
		t.Fatal("expected removal to succeed")
	}
	if repo.RemoveFromNote(work, "note-1") {
		t.Fatal("expected second removal to report missing association")
	}
	if repo.RemoveFromNote(work, "note-2") {
		t.Fatal("expected removal from untagged note to report false")
	}

	tagsFor := repo.NoteTags("note-1")
	if len(tagsFor) != 1 || tagsFor[0].Title != "Home" {
		t.Fatalf("expected filtered list persisted, got %+v", tagsFor)
	}
}

func TestSetNoteTagsReplacesNotMerges(t *testing.T) {
	repo := NewRepository(nil)
	repo.AddToNote(domain.NewTag("Old", red), "note-1")

	repo.SetNoteTags([]domain.Tag{
		domain.NewTag("Beta", blue),
		domain.NewTag("Alpha", red),
	}, "note-1")

	tagsFor := repo.NoteTags("note-1")
	if len(tagsFor) != 2 {
		t.Fatalf("expected exactly the new tags, got %+v", tagsFor)
	}
	if tagsFor[0].Title != "Alpha" || tagsFor[1].Title != "Beta" {
		t.Fatalf("expected title-ascending order, got %+v", tagsFor)
	}

	all := repo.All()
	if len(all) != 3 {
		t.Fatalf("expected Old to stay globally registered, got %+v", all)
	}
}

func TestAllSortsByTitleAscending(t *testing.T) {
	repo := NewRepository(nil)
	repo.Add(domain.NewTag("zeta", red))
	repo.Add(domain.NewTag("Alpha", blue))
	repo.Add(domain.NewTag("Middle", red))

	all := repo.All()
	if len(all) != 3 || all[0].Title != "Alpha" || all[1].Title != "Middle" || all[2].Title != "zeta" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := &snapshotStoreFake{}
	repo := NewRepository(store)
	repo.AddToNote(domain.NewTag("Work", blue), "note-1")
	repo.Add(domain.NewTag("Idle", red))

	restored := NewRepository(store)
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	all := restored.All()
	if len(all) != 2 || all[0].Title != "Idle" || all[1].Title != "Work" {
		t.Fatalf("unexpected restored tags: %+v", all)
	}
	if all[1].Color != blue {
		t.Fatalf("expected color restored, got %+v", all[1].Color)
	}
	tagsFor := restored.NoteTags("note-1")
	if len(tagsFor) != 1 || tagsFor[0].Title != "Work" {
		t.Fatalf("unexpected restored associations: %+v", tagsFor)
	}
}

func TestDecodeToleratesAbsentFields(t *testing.T) {
	data, err := decodeSnapshot([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Tags == nil || len(data.Tags) != 0 {
		t.Fatalf("expected empty tag list, got %+v", data.Tags)
	}
	if data.NoteTags == nil {
		t.Fatal("expected empty note-tag map, got nil")
	}

	data, err = decodeSnapshot([]byte(`{"tags":[{"colorRed":0.5}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Tags) != 1 || data.Tags[0].Title != domain.UntitledTagTitle {
		t.Fatalf("expected untitled sentinel on decode, got %+v", data.Tags)
	}
	if data.Tags[0].Color.Red != 0.5 || data.Tags[0].Color.Green != 0 {
		t.Fatalf("expected missing channels defaulting to 0, got %+v", data.Tags[0].Color)
	}
}
