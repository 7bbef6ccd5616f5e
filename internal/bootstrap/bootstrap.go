package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	httpadapter "github.com/inkfold/notecore/internal/adapters/http"
	"github.com/inkfold/notecore/internal/config"
	"github.com/inkfold/notecore/internal/core/domain"
	"github.com/inkfold/notecore/internal/core/ports"
	"github.com/inkfold/notecore/internal/core/similarity"
	"github.com/inkfold/notecore/internal/core/usecase"
	"github.com/inkfold/notecore/internal/infrastructure/enrich/graphdb"
	"github.com/inkfold/notecore/internal/infrastructure/enrich/imagefetch"
	"github.com/inkfold/notecore/internal/infrastructure/enrich/knowledgegraph"
	"github.com/inkfold/notecore/internal/infrastructure/enrich/linkedresource"
	"github.com/inkfold/notecore/internal/infrastructure/nlp"
	"github.com/inkfold/notecore/internal/infrastructure/queue/nats"
	"github.com/inkfold/notecore/internal/infrastructure/quota"
	"github.com/inkfold/notecore/internal/infrastructure/recognition/cloudvision"
	"github.com/inkfold/notecore/internal/infrastructure/recognition/localocr"
	"github.com/inkfold/notecore/internal/infrastructure/repository/postgres"
	"github.com/inkfold/notecore/internal/infrastructure/resilience"
	"github.com/inkfold/notecore/internal/infrastructure/storage/localfs"
	"github.com/inkfold/notecore/internal/notebook"
	"github.com/inkfold/notecore/internal/observability/metrics"
	"github.com/inkfold/notecore/internal/spelling"
	"github.com/inkfold/notecore/internal/tags"
)

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Repo        ports.NoteRepository
	Tags        *tags.Repository
	RecognizeUC ports.NoteRecognizer
	EnrichUC    ports.NoteEnricher
	SimilarUC   ports.SimilarNotesFinder

	APIMetrics    *metrics.APIMetrics
	WorkerMetrics *metrics.WorkerMetrics
	Previews      *imagefetch.Fetcher

	closeFns []func()
}

// workerObserver adapts worker metrics to the enrichment observer
// contract the sources report through.
type workerObserver struct {
	metrics *metrics.WorkerMetrics
	service string
}

func (o workerObserver) DocumentAttached(source string) {
	o.metrics.RecordAttach(o.service, source)
}

func (o workerObserver) FetchFailure(source, stage string) {
	o.metrics.RecordFetchFailure(o.service, source, stage)
}

type previewFailures struct {
	metrics *metrics.WorkerMetrics
	service string
}

func (p previewFailures) PreviewFailure() {
	p.metrics.RecordPreviewFailure(p.service)
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	app := &App{Config: cfg}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closeFns = append(app.closeFns, func() { _ = db.Close() })

	repo := postgres.NewNoteRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	app.Repo = repo

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closeFns = append(app.closeFns, queue.Close)
	app.Queue = queue

	tagRepo := tags.NewRepository(localfs.NewSnapshotStore(storage, ""))
	if err := tagRepo.Restore(ctx); err != nil {
		slog.Warn("tag_snapshot_restore_failed", "error", err)
	}
	app.Tags = tagRepo

	// Enrichment lookups and quota calls ride a breaker but are never
	// retried; a failed lookup is simply a missing document.
	guard := resilience.New(resilience.SingleAttempt())

	quotaClient := quota.New(cfg.QuotaServiceURL, cfg.QuotaTierName)
	onDevice := localocr.New(cfg.OnDeviceOCRURL)

	var cloudLow, cloudHigh ports.RecognitionBackend
	if cfg.CloudVisionURL != "" {
		cloudLow = cloudvision.New(cfg.CloudVisionURL, cfg.CloudVisionKey, cloudvision.TierStandard, guard)
		cloudHigh = cloudvision.New(cfg.CloudVisionURL, cfg.CloudVisionKey, cloudvision.TierPremium, guard)
	} else {
		// No cloud credentials configured: every mode serves on-device.
		cloudLow, cloudHigh = onDevice, onDevice
	}

	app.APIMetrics = metrics.NewAPIMetrics(service)
	app.WorkerMetrics = metrics.NewWorkerMetrics(service)

	app.RecognizeUC = usecase.NewRecognizeNoteUseCase(
		onDevice, cloudLow, cloudHigh,
		quotaClient, repo, queue,
		spelling.Normalize, cfg.DeviceLabel,
		domain.RecognitionMode(cfg.RecognitionMode),
	)

	sink := notebook.New(repo)
	observer := workerObserver{metrics: app.WorkerMetrics, service: service}
	previews := imagefetch.New(storage, sink, cfg.PreviewRatePerSec, cfg.PreviewBurst,
		previewFailures{metrics: app.WorkerMetrics, service: service})
	app.Previews = previews

	var sources []ports.AnnotationSource
	var places ports.PlaceClassifier
	if cfg.KnowledgeGraphURL != "" {
		kg := knowledgegraph.New(cfg.KnowledgeGraphURL, sink, previews, observer, guard)
		sources = append(sources, kg)
		places = kg
	}
	if cfg.LinkedResourceURL != "" {
		sources = append(sources, linkedresource.New(cfg.LinkedResourceURL, sink, previews, observer, guard))
	}
	if cfg.Neo4jURI != "" {
		graph, err := graphdb.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, sink, previews, observer)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init graph source: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = graph.Close(context.Background()) })
		sources = append(sources, graph)
	}

	extractor := nlp.New(cfg.NLPServiceURL)
	app.EnrichUC = usecase.NewEnrichNoteUseCase(repo, extractor, sources, places)

	engine := similarity.NewEngine(tagRepo.NoteTagTitles, cfg.SimilarityMinScore)
	app.SimilarUC = usecase.NewSimilarNotesUseCase(repo, repo, engine, cfg.SimilarityTopK)

	return app, nil
}

// APIHandler builds the HTTP surface for the api binary.
func (a *App) APIHandler(service string) *httpadapter.Router {
	return httpadapter.NewRouter(a.RecognizeUC, a.SimilarUC, a.Repo, a.Tags, a.APIMetrics, service)
}

func (a *App) Close() {
	if a.Previews != nil {
		a.Previews.Wait()
	}
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}
