// Package similarity ranks notes by cosine similarity over a shared
// hashed vocabulary of stemmed text tokens, tag titles, and document
// metadata.
package similarity

import (
	"context"
	"sort"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// TagLookup resolves the tag titles carried by a note.
type TagLookup func(noteID string) []string

// Engine scans a note corpus lazily: each candidate is vectorized,
// scored, and either kept in the bounded result set or dropped before
// the next candidate is produced. Memory stays proportional to the
// result size, not the corpus.
type Engine struct {
	tags     TagLookup
	minScore float64
}

func NewEngine(tags TagLookup, minScore float64) *Engine {
	if tags == nil {
		tags = func(string) []string { return nil }
	}
	return &Engine{tags: tags, minScore: minScore}
}

// SimilarNotes returns up to maxResults corpus notes ranked by descending
// similarity to target, ties broken by title ascending. The target itself
// is excluded, as is every candidate scoring zero or below the minimum
// threshold.
func (e *Engine) SimilarNotes(ctx context.Context, target *domain.Note, corpus ports.NoteCorpus, maxResults int) ([]domain.SimilarityResult, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	targetVec := noteVector(target, e.tags(target.ID))

	var results []domain.SimilarityResult
	err := corpus.Iterate(ctx, func(_ string, candidate *domain.Note) error {
		if candidate.ID == target.ID {
			return nil
		}
		score := cosine(targetVec, noteVector(candidate, e.tags(candidate.ID)))
		if score <= 0 || score < e.minScore {
			return nil
		}
		results = append(results, domain.SimilarityResult{Note: candidate, Score: score})
		if len(results) > maxResults*2 {
			sortResults(results)
			results = results[:maxResults]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortResults(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func sortResults(results []domain.SimilarityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Note.Title < results[j].Note.Title
	})
}
