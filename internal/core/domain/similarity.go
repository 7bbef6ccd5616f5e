package domain

// SimilarityResult pairs a corpus note with its similarity score against
// the target note. Score is in [0,1].
type SimilarityResult struct {
	Note  *Note   `json:"note"`
	Score float64 `json:"score"`
}
