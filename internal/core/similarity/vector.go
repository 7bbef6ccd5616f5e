package similarity

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/inkfold/notecore/internal/core/domain"
)

// Feature weights. Tags are a stronger relatedness signal than free text,
// so tag titles get boosted; document titles and categories count like
// ordinary text.
const (
	textWeight = 1.0
	tagWeight  = 1.5
	docWeight  = 1.0
)

// sparseVector maps hashed vocabulary terms to weights. Hashing the term
// keeps the shared vocabulary implicit: two notes agree on a feature iff
// their stems hash alike, with collisions rare enough to ignore.
type sparseVector map[uint32]float64

func hashTerm(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return h.Sum32()
}

func (v sparseVector) add(term string, weight float64) {
	if term == "" {
		return
	}
	v[hashTerm(term)] += weight
}

func (v sparseVector) norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func cosine(a, b sparseVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for id, wa := range a {
		if wb, ok := b[id]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm() * b.norm())
}

// noteVector encodes a note's accumulated signals: stemmed text tokens,
// tag titles, and attached-document titles and categories.
func noteVector(note *domain.Note, tagTitles []string) sparseVector {
	v := make(sparseVector)
	for _, token := range tokenize(note.Text) {
		v.add(stem(token), textWeight)
	}
	for _, title := range tagTitles {
		for _, token := range tokenize(title) {
			v.add(stem(token), tagWeight)
		}
	}
	for _, doc := range note.Documents {
		for _, token := range tokenize(doc.Title) {
			v.add(stem(token), docWeight)
		}
		for _, category := range doc.Categories {
			for _, token := range tokenize(category) {
				v.add(stem(token), docWeight)
			}
		}
	}
	return v
}

// tokenize lowercases and splits on anything that is not a letter or
// digit, dropping empty runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stem reduces a token to its base form so "drawing" and "drawings" land
// on the same feature. Stemming failures fall back to the raw token.
func stem(token string) string {
	stemmed, err := snowball.Stem(token, "english", true)
	if err != nil || stemmed == "" {
		return token
	}
	return stemmed
}
