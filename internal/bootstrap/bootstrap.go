// Package bootstrap wires the ingestion pipeline from configuration. The
// server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"trustbooks/internal/extract/fields"
	"trustbooks/internal/extract/text"
	"trustbooks/internal/llm"
	"trustbooks/internal/queue"
	"trustbooks/internal/repository"
	"trustbooks/internal/service"
	"trustbooks/internal/storage"
	"trustbooks/migrations"
	"trustbooks/pkg/config"
	"trustbooks/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Extraction holds the parts that need neither the database nor storage.
type Extraction struct {
	Text      *text.Extractor
	Fields    *fields.Registry
	Completer llm.Completer
}

func NewExtraction(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Extraction, error) {
	completer, err := llm.New(ctx, &cfg.AI, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	policy := fields.DefaultPolicy()
	policy.MinFallbackFields = cfg.Parse.MinFallbackFields
	if cfg.AI.MaxInputChars > 0 {
		policy.MaxInputChars = cfg.AI.MaxInputChars
	}
	if cfg.AI.Timeout > 0 {
		policy.Timeout = cfg.AI.Timeout
	}

	registry, err := fields.NewRegistry(completer, policy, logger.Named("fields"))
	if err != nil {
		if completer != nil {
			completer.Close()
		}
		return nil, err
	}

	return &Extraction{
		Text:      text.NewExtractor(logger.Named("text")),
		Fields:    registry,
		Completer: completer,
	}, nil
}

func (e *Extraction) Close() error {
	if e.Completer == nil {
		return nil
	}
	return e.Completer.Close()
}

// Pipeline is the fully wired ingestion service with its resources.
type Pipeline struct {
	DB         *pgxpool.Pool
	Storage    storage.Storage
	Extraction *Extraction
	Service    *service.IngestionService
	Dispatcher queue.Dispatcher
	logger     *zap.Logger
}

func NewPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{logger: logger}
	if err := p.open(ctx, cfg); err != nil {
		p.Close(ctx)
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) open(ctx context.Context, cfg *config.Config) (err error) {
	logger := p.logger

	p.DB, err = postgres.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if _, err = postgres.Migrate(ctx, p.DB, migrations.FS, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	p.Storage, err = storage.New(&cfg.Storage, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	p.Extraction, err = NewExtraction(ctx, cfg, logger)
	if err != nil {
		return err
	}

	p.Service = service.NewIngestionService(
		repository.NewInvoiceRepository(p.DB, logger),
		repository.NewBankStatementRepository(p.DB, logger),
		p.Storage,
		service.NewFileValidator(cfg.Upload.MaxFileSize),
		p.Extraction.Text,
		p.Extraction.Fields,
		logger.Named("ingestion"),
	)

	p.Dispatcher, err = queue.New(&cfg.Queue, p.Service.Process, logger.Named("queue"))
	if err != nil {
		return fmt.Errorf("failed to start parse queue: %w", err)
	}
	p.Service.SetDispatcher(p.Dispatcher)

	return nil
}

// Close drains the queue first so in-flight parses can still write their
// results, then releases everything else.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	if p.Dispatcher != nil {
		if err := p.Dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Extraction != nil {
		if err := p.Extraction.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Storage != nil {
		if err := p.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.DB != nil {
		p.DB.Close()
	}
	return errors.Join(errs...)
}
