package knowledgegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/infrastructure/enrich"
	"github.com/inkfold/notecore/internal/infrastructure/resilience"
)

const (
	sourceName = "knowledge-graph"
	placeType  = "Place"

	maxEntitiesPerConcept = 5
)

// Client is the knowledge-graph annotation source. Entity search returns
// typed entities directly, so no secondary detail expansion is needed.
// It additionally answers place classification queries used to
// disambiguate concepts before enrichment.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	sink       ports.DocumentSink
	previews   ports.PreviewFetcher
	observer   enrich.Observer
}

func New(
	baseURL string,
	sink ports.DocumentSink,
	previews ports.PreviewFetcher,
	observer enrich.Observer,
	executor *resilience.Executor,
) *Client {
	if observer == nil {
		observer = enrich.NopObserver{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
		sink:       sink,
		previews:   previews,
		observer:   observer,
	}
}

func (c *Client) Name() string { return sourceName }

type entity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Types       []string `json:"types"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"imageURL"`
}

func (c *Client) Fetch(ctx context.Context, concept, spotLabel, noteID string) {
	entities, err := c.search(ctx, concept, maxEntitiesPerConcept)
	if err != nil {
		slog.Warn("annotation_lookup_failed", "source", sourceName, "concept", concept, "error", err)
		c.observer.FetchFailure(sourceName, "lookup")
		return
	}

	for _, e := range entities {
		if e.Title == "" || e.URL == "" {
			continue
		}

		doc := domain.Document{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Source:      domain.SourceKnowledgeGraph,
			Spot:        spotLabel,
			Categories:  e.Types,
			ExternalID:  e.ID,
			PreviewURL:  e.ImageURL,
		}

		attached, err := c.sink.Attach(ctx, noteID, doc)
		if err != nil {
			slog.Warn("annotation_attach_failed", "source", sourceName, "note_id", noteID, "error", err)
			c.observer.FetchFailure(sourceName, "attach")
			continue
		}
		if !attached {
			continue
		}
		c.observer.DocumentAttached(sourceName)

		if doc.PreviewURL != "" && c.previews != nil {
			c.previews.Schedule(noteID, doc)
		}
	}
}

// IsPlace reports whether the best entity match for name carries the
// place type. A failed or empty classification resolves to false; it
// never blocks beyond the single round trip.
func (c *Client) IsPlace(ctx context.Context, name string) bool {
	entities, err := c.search(ctx, name, 1)
	if err != nil {
		slog.Warn("place_classification_failed", "name", name, "error", err)
		return false
	}
	if len(entities) == 0 {
		return false
	}
	for _, entityType := range entities[0].Types {
		if strings.EqualFold(entityType, placeType) {
			return true
		}
	}
	return false
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var response struct {
		Entities []entity `json:"entities"`
	}

	call := func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/v1/entities?query=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return domain.WrapError(domain.ErrTransport, sourceName+" search", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return domain.WrapError(domain.ErrTransport, sourceName+" search", fmt.Errorf("status %s", resp.Status))
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return domain.WrapError(domain.ErrParse, sourceName+" search", err)
		}
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "knowledgegraph.search", call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return response.Entities, nil
}
