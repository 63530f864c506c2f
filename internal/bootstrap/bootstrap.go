package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/avasilkov/knowledge-retrieval/internal/config"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
	"github.com/avasilkov/knowledge-retrieval/internal/core/usecase"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/chunking"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/embedding/ollama"
	openaiembed "github.com/avasilkov/knowledge-retrieval/internal/infrastructure/embedding/openai"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/extractor"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/extractor/pdf"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/extractor/plaintext"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/extractor/xlsx"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/queue/nats"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/repository/postgres"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/rerank/crossencoder"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/resilience"
	"github.com/avasilkov/knowledge-retrieval/internal/infrastructure/storage/localfs"
)

// App holds the wired object graph shared by the api and worker binaries.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	SearchUC  ports.SearchService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbeddingDimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	repo := postgres.NewDocumentRepository(db)
	chunkRepo := postgres.NewChunkRepository(db)
	lexical := postgres.NewLexicalIndex(db)
	vector := postgres.NewVectorIndex(db, cfg.EmbeddingDimensions)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder, err := newEmbedder(cfg, executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	maxInput := cfg.EmbeddingMaxInputChars
	if maxInput <= 0 {
		maxInput = embedder.MaxInputLength()
	}
	chunker := chunking.NewSplitter(maxInput, cfg.ChunkOverlapFraction)

	var reranker ports.Reranker
	if cfg.RerankEnabled {
		reranker = crossencoder.New(
			cfg.RerankerURL,
			cfg.RerankerModel,
			time.Duration(cfg.RerankTimeoutMS)*time.Millisecond,
		)
	}

	texts := extractor.NewRegistry(plaintext.NewExtractor(storage))
	texts.Register("application/pdf", pdf.NewExtractor(storage))
	texts.Register("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx.NewExtractor(storage))

	searchUC := usecase.NewSearchUseCase(embedder, lexical, vector, reranker, usecase.SearchOptions{
		RRFK:                cfg.RRFK,
		CandidateMultiplier: cfg.CandidateMultiplier,
		DocTierTopN:         cfg.DocTierTopN,
		SubQueryTimeout:     time.Duration(cfg.SubQueryTimeoutMS) * time.Millisecond,
		RerankEnabled:       cfg.RerankEnabled,
	})
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, chunkRepo, texts, chunker, embedder)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		SearchUC:  searchUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newEmbedder(cfg config.Config, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.EmbeddingModel, ollama.Options{
			MaxInputLen: cfg.EmbeddingMaxInputChars,
			Executor:    executor,
		}), nil
	case "openai":
		return openaiembed.New(cfg.EmbeddingModel, openaiembed.Options{
			BaseURL:     cfg.OpenAIBaseURL,
			Dimensions:  cfg.EmbeddingDimensions,
			MaxInputLen: cfg.EmbeddingMaxInputChars,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
