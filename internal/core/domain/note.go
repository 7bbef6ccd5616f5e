package domain

import "time"

// DocumentSource discriminates which enrichment service produced a document.
type DocumentSource string

const (
	SourceKnowledgeGraph DocumentSource = "knowledge-graph"
	SourceLinkedResource DocumentSource = "linked-resource"
	SourceGraphDB        DocumentSource = "graph-db"
)

// Document is an enrichment record attached to a note. PreviewPath is set
// lazily after the preview image download lands; an unset preview never
// invalidates the document.
type Document struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url"`
	Source      DocumentSource `json:"source"`
	Spot        string         `json:"spot,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	PreviewURL  string         `json:"preview_url,omitempty"`
	PreviewPath string         `json:"preview_path,omitempty"`
}

// Key identifies a document for deduplication: source plus external
// identifier, falling back to the resolved URL when no identifier exists.
func (d Document) Key() string {
	if d.ExternalID != "" {
		return string(d.Source) + "/" + d.ExternalID
	}
	return string(d.Source) + "/" + d.URL
}

// Note is a handwritten note with its recognized text and accumulated
// enrichment documents. FolderID is a weak reference; folders never own
// notes for lifetime purposes.
type Note struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Documents []Document `json:"documents"`
	FolderID  string     `json:"folder_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Attach appends doc unless a document with the same key is already
// present. Callers must serialize Attach calls for the same note.
func (n *Note) Attach(doc Document) bool {
	key := doc.Key()
	for _, existing := range n.Documents {
		if existing.Key() == key {
			return false
		}
	}
	n.Documents = append(n.Documents, doc)
	return true
}

// Concept is a text span extracted from recognized note text, used as the
// lookup key for enrichment sources. Label carries the extractor's entity
// class (e.g. "place").
type Concept struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}
