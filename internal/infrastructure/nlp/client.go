package nlp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
)

// Client calls the local NLP sidecar that extracts lookup-worthy concepts
// from recognized note text.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Extract(ctx context.Context, text string) ([]domain.Concept, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	request := map[string]any{
		"text": text,
	}

	var response struct {
		Concepts []struct {
			Text  string `json:"text"`
			Label string `json:"label"`
		} `json:"concepts"`
	}
	if err := c.postJSON(ctx, "/api/extract", request, &response, "extract"); err != nil {
		return nil, err
	}

	out := make([]domain.Concept, 0, len(response.Concepts))
	for _, concept := range response.Concepts {
		trimmed := strings.TrimSpace(concept.Text)
		if trimmed == "" {
			continue
		}
		out = append(out, domain.Concept{
			Text:  trimmed,
			Label: strings.ToLower(strings.TrimSpace(concept.Label)),
		})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func formatHTTPError(operation string, status string, body string) error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		return fmt.Errorf("nlp %s status: %s", operation, status)
	}
	return fmt.Errorf("nlp %s status: %s: %s", operation, status, msg)
}
