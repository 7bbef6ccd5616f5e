// Package graphdb is the annotation source variant backed by a Neo4j
// graph. Deployments that curate their own concept-to-resource edges
// run this alongside, or instead of, the public knowledge-graph lookup.
package graphdb

import (
	"context"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/infrastructure/enrich"
)

const sourceName = "graph-db"

const resourceQuery = `
MATCH (c:Concept {name: $name})-[:REFERENCES]->(r:Resource)
RETURN r.id AS id, r.title AS title, r.description AS description,
       r.url AS url, r.imageURL AS imageURL, r.categories AS categories
LIMIT 10`

type Source struct {
	driver   neo4j.DriverWithContext
	sink     ports.DocumentSink
	previews ports.PreviewFetcher
	observer enrich.Observer
}

func New(uri, user, password string, sink ports.DocumentSink, previews ports.PreviewFetcher, observer enrich.Observer) (*Source, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}
	if observer == nil {
		observer = enrich.NopObserver{}
	}
	return &Source{driver: driver, sink: sink, previews: previews, observer: observer}, nil
}

func (s *Source) Name() string { return sourceName }

func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Source) Fetch(ctx context.Context, concept, spotLabel, noteID string) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, resourceQuery,
		map[string]any{"name": concept},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		slog.Warn("annotation_lookup_failed", "source", sourceName, "concept", concept, "error", err)
		s.observer.FetchFailure(sourceName, "lookup")
		return
	}

	for _, record := range result.Records {
		doc := recordToDocument(record, spotLabel)
		if doc.Title == "" || doc.URL == "" {
			continue
		}

		attached, err := s.sink.Attach(ctx, noteID, doc)
		if err != nil {
			slog.Warn("annotation_attach_failed", "source", sourceName, "note_id", noteID, "error", err)
			s.observer.FetchFailure(sourceName, "attach")
			continue
		}
		if !attached {
			continue
		}
		s.observer.DocumentAttached(sourceName)

		if doc.PreviewURL != "" && s.previews != nil {
			s.previews.Schedule(noteID, doc)
		}
	}
}

func recordToDocument(record *neo4j.Record, spotLabel string) domain.Document {
	doc := domain.Document{
		Source: domain.SourceGraphDB,
		Spot:   spotLabel,
	}
	doc.ExternalID = stringValue(record, "id")
	doc.Title = stringValue(record, "title")
	doc.Description = stringValue(record, "description")
	doc.URL = stringValue(record, "url")
	doc.PreviewURL = stringValue(record, "imageURL")
	if raw, ok := record.Get("categories"); ok {
		if items, ok := raw.([]any); ok {
			for _, item := range items {
				if category, ok := item.(string); ok && category != "" {
					doc.Categories = append(doc.Categories, category)
				}
			}
		}
	}
	return doc
}

func stringValue(record *neo4j.Record, key string) string {
	raw, ok := record.Get(key)
	if !ok {
		return ""
	}
	value, _ := raw.(string)
	return value
}
