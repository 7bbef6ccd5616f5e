package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
)

// Normalizer is the no-fail spell normalization applied to recognized
// text before it is stored.
type Normalizer func(text string) string

// RecognizeNoteUseCase routes a recognition request to a backend, applies
// spell normalization, persists the recognized text, and announces the
// note for enrichment.
type RecognizeNoteUseCase struct {
	onDevice  ports.RecognitionBackend
	cloudLow  ports.RecognitionBackend
	cloudHigh ports.RecognitionBackend
	quota     ports.QuotaService
	repo      ports.NoteRepository
	queue     ports.MessageQueue
	normalize Normalizer

	deviceLabel string
	defaultMode domain.RecognitionMode
}

func NewRecognizeNoteUseCase(
	onDevice, cloudLow, cloudHigh ports.RecognitionBackend,
	quota ports.QuotaService,
	repo ports.NoteRepository,
	queue ports.MessageQueue,
	normalize Normalizer,
	deviceLabel string,
	defaultMode domain.RecognitionMode,
) *RecognizeNoteUseCase {
	if normalize == nil {
		normalize = func(text string) string { return text }
	}
	if defaultMode == "" {
		defaultMode = domain.ModeOnDevice
	}
	return &RecognizeNoteUseCase{
		onDevice:    onDevice,
		cloudLow:    cloudLow,
		cloudHigh:   cloudHigh,
		quota:       quota,
		repo:        repo,
		queue:       queue,
		normalize:   normalize,
		deviceLabel: deviceLabel,
		defaultMode: defaultMode,
	}
}

// Recognize runs one recognition call. The backend is selected fresh per
// call. A failed backend call is surfaced as-is and never retried on a
// different backend; the caller decides whether to re-invoke under
// another mode.
func (uc *RecognizeNoteUseCase) Recognize(ctx context.Context, noteID string, image []byte, opts domain.RecognizeOptions) (*domain.RecognizedText, error) {
	if len(image) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recognize note", fmt.Errorf("empty image payload"))
	}
	if _, err := uc.repo.GetByID(ctx, noteID); err != nil {
		return nil, err
	}

	if opts.Mode == "" {
		opts.Mode = uc.defaultMode
	}
	backend, servedBy := uc.selectBackend(ctx, opts.Mode)

	result, err := backend.Recognize(ctx, image)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRecognitionFailed, "recognize note", err)
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil, domain.WrapError(domain.ErrRecognitionFailed, "recognize note", fmt.Errorf("backend %s returned no usable text", servedBy))
	}
	result.Backend = servedBy

	if opts.SpellcheckEnabled {
		result.Text = uc.normalize(result.Text)
	}

	if err := uc.repo.UpdateText(ctx, noteID, result.Text); err != nil {
		return nil, err
	}

	if uc.queue != nil {
		if err := uc.queue.PublishNoteRecognized(ctx, noteID); err != nil {
			slog.Warn("note_recognized_publish_failed", "note_id", noteID, "error", err)
		}
	}
	return result, nil
}

// selectBackend evaluates the routing policy once. High-fidelity requests
// consult the quota authority first; zero remaining calls, including the
// quota-unknown case, reroute to the on-device backend. The usage report
// for a granted high-fidelity call is strictly fire-and-forget.
func (uc *RecognizeNoteUseCase) selectBackend(ctx context.Context, mode domain.RecognitionMode) (ports.RecognitionBackend, domain.RecognitionMode) {
	switch mode {
	case domain.ModeCloudLowFidelity:
		return uc.cloudLow, domain.ModeCloudLowFidelity
	case domain.ModeCloudHighFidelity:
		if uc.quota.RemainingCalls(ctx) > 0 {
			go uc.quota.ReportUsage(context.WithoutCancel(ctx), uc.deviceLabel, string(domain.ModeCloudHighFidelity))
			return uc.cloudHigh, domain.ModeCloudHighFidelity
		}
		slog.Info("quota_exhausted_fallback", "requested_mode", mode)
		return uc.onDevice, domain.ModeOnDevice
	default:
		return uc.onDevice, domain.ModeOnDevice
	}
}
