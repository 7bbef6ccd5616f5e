// Package imagefetch downloads document preview images in the background.
// Preview downloads are the one place retries are allowed: the document is
// already attached, so a transient image failure costs nothing but the
// thumbnail.
package imagefetch

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/infrastructure/resilience"
)

const (
	maxPreviewBytes = 5 << 20
	fetchTimeout    = 2 * time.Minute
)

// FailureObserver counts preview downloads that never produced a stored
// image.
type FailureObserver interface {
	PreviewFailure()
}

type nopFailureObserver struct{}

func (nopFailureObserver) PreviewFailure() {}

// Fetcher downloads preview images at a bounded rate and stores them
// under previews/ in object storage. Schedule returns immediately; the
// download runs on its own goroutine detached from the enrichment
// request context.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	storage    ports.ObjectStorage
	sink       ports.DocumentSink
	observer   FailureObserver

	wg sync.WaitGroup
}

func New(storage ports.ObjectStorage, sink ports.DocumentSink, ratePerSec float64, burst int, observer FailureObserver) *Fetcher {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	if burst <= 0 {
		burst = 1
	}
	if observer == nil {
		observer = nopFailureObserver{}
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		executor:   resilience.New(resilience.Retrying(3)),
		storage:    storage,
		sink:       sink,
		observer:   observer,
	}
}

func (f *Fetcher) Schedule(noteID string, doc domain.Document) {
	if doc.PreviewURL == "" {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if err := f.fetch(ctx, noteID, doc); err != nil {
			slog.Warn("preview_fetch_failed", "note_id", noteID, "doc_key", doc.Key(), "error", err)
			f.observer.PreviewFailure()
		}
	}()
}

// Wait blocks until all scheduled downloads finish. Used on shutdown.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

func (f *Fetcher) fetch(ctx context.Context, noteID string, doc domain.Document) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	key := previewKey(noteID, doc)
	err := f.executor.Execute(ctx, "imagefetch.download", func(ctx context.Context) error {
		return f.download(ctx, doc.PreviewURL, key)
	})
	if err != nil {
		return err
	}

	if err := f.sink.SetPreview(ctx, noteID, doc.Key(), key); err != nil {
		return fmt.Errorf("record preview path: %w", err)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, previewURL, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, nil)
	if err != nil {
		return fmt.Errorf("create preview request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrTransport, "preview download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrTransport, "preview download", fmt.Errorf("status %s", resp.Status))
	}

	return f.storage.Save(ctx, key, io.LimitReader(resp.Body, maxPreviewBytes))
}

func previewKey(noteID string, doc domain.Document) string {
	ext := path.Ext(doc.PreviewURL)
	if len(ext) > 5 || ext == "" {
		ext = ".img"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(doc.Key()))
	return fmt.Sprintf("previews/%s/%x%s", noteID, h.Sum32(), ext)
}
