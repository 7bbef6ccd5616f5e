package cloudvision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/infrastructure/resilience"
)

// Tier names select the recognition model on the remote vision service.
// The premium tier is the one gated by the remote usage quota.
const (
	TierStandard = "standard"
	TierPremium  = "premium"
)

// Client is one tier of the cloud handwriting-recognition service.
type Client struct {
	baseURL    string
	apiKey     string
	tier       string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, tier string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		tier:       tier,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Recognize(ctx context.Context, image []byte) (*domain.RecognizedText, error) {
	var result *domain.RecognizedText

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			fmt.Sprintf("%s/v1/recognize/%s", c.baseURL, c.tier),
			bytes.NewReader(image),
		)
		if err != nil {
			return fmt.Errorf("create recognize request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return domain.WrapError(domain.ErrTransport, "cloud recognize", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return domain.WrapError(domain.ErrTransport, "cloud recognize", httpStatusError(resp))
		}

		var decoded domain.RecognizedText
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return domain.WrapError(domain.ErrParse, "cloud recognize", err)
		}
		result = &decoded
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "cloudvision.recognize."+c.tier, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func httpStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("status %s", resp.Status)
	}
	return fmt.Errorf("status %s: %s", resp.Status, msg)
}
