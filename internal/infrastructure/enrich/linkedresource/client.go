package linkedresource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/infrastructure/enrich"
	"github.com/inkfold/notecore/internal/infrastructure/resilience"
)

const sourceName = "linked-resource"

// Client is the linked-resource annotation source: a two-stage lookup that
// lists candidate matches for a concept, then expands each match with a
// per-item detail request. All failures abort silently; documents appear
// on the note through the sink or not at all.
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

type match struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (c *Client) Fetch(ctx context.Context, concept, spotLabel, noteID string) {
	key := sanitizeConcept(concept)
	if key == "" {
		return
	}

	matches, err := c.listMatches(ctx, key)
	if err != nil {
		slog.Warn("annotation_lookup_failed", "source", sourceName, "concept", concept, "error", err)
		c.observer.FetchFailure(sourceName, "lookup")
		return
	}

	// Per-match detail requests are independent; one failing must not
	// cancel its siblings.
	var wg sync.WaitGroup
	for _, m := range matches {
		if m.ID == "" || m.Type == "" || m.URL == "" {
			continue
		}
		wg.Add(1)
		go func(m match) {
			defer wg.Done()
			c.expand(ctx, m, spotLabel, noteID)
		}(m)
	}
	wg.Wait()
}

func (c *Client) listMatches(ctx context.Context, key string) ([]match, error) {
	var response struct {
		Matches []match `json:"matches"`
	}

	call := func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/v1/resources?concept=%s", c.baseURL, url.QueryEscape(key))
		return c.getJSON(ctx, endpoint, &response, "list")
	}
	if err := c.execute(ctx, "linkedresource.list", call); err != nil {
		return nil, err
	}
	return response.Matches, nil
}

func (c *Client) expand(ctx context.Context, m match, spotLabel, noteID string) {
	var detail struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		PreviewURL string `json:"previewURL"`
		URL        string `json:"url"`
	}

	call := func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/v1/resources/%s", c.baseURL, url.PathEscape(m.ID))
		return c.getJSON(ctx, endpoint, &detail, "detail")
	}
	if err := c.execute(ctx, "linkedresource.detail", call); err != nil {
		slog.Warn("annotation_detail_failed", "source", sourceName, "match_id", m.ID, "error", err)
		c.observer.FetchFailure(sourceName, "detail")
		return
	}
	if detail.Title == "" || detail.URL == "" {
		return
	}

	doc := domain.Document{
		Title:      detail.Title,
		URL:        detail.URL,
		Source:     domain.SourceLinkedResource,
		Spot:       spotLabel,
		Categories: []string{m.Type},
		ExternalID: detail.ID,
		PreviewURL: detail.PreviewURL,
	}

	attached, err := c.sink.Attach(ctx, noteID, doc)
	if err != nil {
		slog.Warn("annotation_attach_failed", "source", sourceName, "note_id", noteID, "error", err)
		c.observer.FetchFailure(sourceName, "attach")
		return
	}
	if !attached {
		return
	}
	c.observer.DocumentAttached(sourceName)

	if doc.PreviewURL != "" && c.previews != nil {
		c.previews.Schedule(noteID, doc)
	}
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor != nil {
		return c.executor.Execute(ctx, operation, call)
	}
	return call(ctx)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTransport, sourceName+" "+operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrTransport, sourceName+" "+operation, fmt.Errorf("status %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(domain.ErrParse, sourceName+" "+operation, err)
	}
	return nil
}

func sanitizeConcept(concept string) string {
	return strings.ReplaceAll(strings.TrimSpace(concept), " ", "_")
}
