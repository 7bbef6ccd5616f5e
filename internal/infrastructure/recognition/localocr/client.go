package localocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
)

// Client is the on-device recognition backend: a quota-free OCR sidecar
// listening on localhost. It serves both the explicit on-device mode and
// the fallback when the high-fidelity quota is exhausted.
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

func (c *Client) Recognize(ctx context.Context, image []byte) (*domain.RecognizedText, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "ondevice recognize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrTransport, "ondevice recognize", fmt.Errorf("status %s", resp.Status))
	}

	var result domain.RecognizedText
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.WrapError(domain.ErrParse, "ondevice recognize", err)
	}
	return &result, nil
}
