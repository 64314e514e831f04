package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustbooks/internal/dto"
	"trustbooks/internal/extract/fields"
	"trustbooks/internal/extract/text"
	"trustbooks/internal/models"
	"trustbooks/internal/queue"
	"trustbooks/internal/storage"
	"trustbooks/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InvoiceStore interface {
	Create(ctx context.Context, rec *models.Record) error
	Finalize(ctx context.Context, id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.InvoiceFields) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Invoice, error)
}

type BankStatementStore interface {
	Create(ctx context.Context, rec *models.Record) error
	Finalize(ctx context.Context, id uuid.UUID, status models.ParsingStatus, rawText *string, f *models.BankStatementFields) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BankStatement, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.BankStatement, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (text.Document, error)
}

type FieldExtractors interface {
	For(kind models.DocumentKind) (fields.Extractor, error)
}

// terminalWriteTimeout bounds the final status update, which runs detached
// from the task context so a cancelled task still leaves a terminal record.
const terminalWriteTimeout = 10 * time.Second

// IngestionService stores uploads, creates their records and turns them into
// parsed rows in the background.
type IngestionService struct {
	invoices   InvoiceStore
	statements BankStatementStore
	storage    storage.Storage
	validator  *FileValidator
	text       TextExtractor
	fields     FieldExtractors
	dispatcher queue.Dispatcher
	logger     *zap.Logger
}

func NewIngestionService(
	invoices InvoiceStore,
	statements BankStatementStore,
	store storage.Storage,
	validator *FileValidator,
	textExtractor TextExtractor,
	fieldExtractors FieldExtractors,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		invoices:   invoices,
		statements: statements,
		storage:    store,
		validator:  validator,
		text:       textExtractor,
		fields:     fieldExtractors,
		logger:     logger,
	}
}

// SetDispatcher wires the queue that runs Process. The dispatcher needs
// Process as its handler, so it is attached after construction.
func (s *IngestionService) SetDispatcher(d queue.Dispatcher) {
	s.dispatcher = d
}

// Upload validates and stores the file, creates its record in Processing and
// schedules parsing. It returns before parsing starts.
func (s *IngestionService) Upload(ctx context.Context, kind models.DocumentKind, filename, contentType string, data []byte) (*dto.UploadResponse, error) {
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("kind", string(kind), "unknown document kind")
	}
	if err := s.validator.Validate(filename, int64(len(data)), contentType); err != nil {
		return nil, err
	}

	id := uuid.New()
	path := fmt.Sprintf("%s/%s_%s", kind.StorageDir(), id, sanitizeFilename(filename))
	log := s.logger.With(
		zap.String("record_id", id.String()),
		zap.String("kind", string(kind)),
		zap.String("file_path", path),
	)

	if err := s.storage.Upload(ctx, path, data, contentType); err != nil {
		log.Error("Failed to upload file to storage", zap.Error(err))
		return nil, &apperrors.StorageError{Op: "put", Path: path, Err: err}
	}

	now := time.Now().UTC()
	rec := &models.Record{
		ID:        id,
		FilePath:  path,
		Status:    models.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.create(ctx, kind, rec); err != nil {
		// The blob stays orphaned; nothing references it.
		log.Error("Failed to create record", zap.Error(err))
		return nil, &apperrors.PersistenceError{Op: "create", Err: err}
	}

	status := models.StatusProcessing
	task := queue.Task{Kind: kind, RecordID: id, FilePath: path, Filename: filename, Data: data}
	if err := s.dispatch(ctx, task); err != nil {
		log.Error("Failed to schedule parsing", zap.Error(err))
		status = models.StatusError
		if ferr := s.finalize(ctx, kind, id, status, nil, nil); ferr != nil {
			log.Error("Failed to mark record as failed", zap.Error(ferr))
		}
	}

	log.Info("Document uploaded", zap.Int("size", len(data)))
	return &dto.UploadResponse{
		Message:  kind.Label() + " uploaded successfully. Parsing in progress.",
		FileID:   id.String(),
		FilePath: path,
		Status:   string(status),
	}, nil
}

func (s *IngestionService) dispatch(ctx context.Context, t queue.Task) error {
	if s.dispatcher == nil {
		return queue.ErrClosed
	}
	return s.dispatcher.Submit(ctx, t)
}

// Process runs text and field extraction for one record and writes the
// outcome in a single update. Whatever goes wrong, it tries to leave the
// record in a terminal status.
func (s *IngestionService) Process(ctx context.Context, t queue.Task) (err error) {
	log := s.logger.With(
		zap.String("record_id", t.RecordID.String()),
		zap.String("kind", string(t.Kind)),
	)
	start := time.Now()

	var rawText *string
	finalized := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing: %v", r)
		}
		if err == nil || finalized {
			return
		}
		log.Warn("Parsing failed", zap.Error(err))
		if ferr := s.finalizeDetached(ctx, t.Kind, t.RecordID, models.StatusError, rawText, nil); ferr != nil {
			log.Error("Failed to mark record as failed", zap.Error(ferr))
		}
	}()

	data := t.Data
	if len(data) == 0 {
		data, err = s.storage.Download(ctx, t.FilePath)
		if err != nil {
			return &apperrors.StorageError{Op: "get", Path: t.FilePath, Err: err}
		}
	}

	doc, err := s.text.Extract(ctx, t.Filename, data)
	if err != nil {
		return err
	}
	if !doc.HasContent() {
		return &apperrors.ExtractionError{Kind: string(t.Kind), Err: apperrors.ErrNoContent}
	}
	raw := doc.Text
	rawText = &raw

	extractor, err := s.fields.For(t.Kind)
	if err != nil {
		return err
	}
	res := extractor.Extract(ctx, doc)

	status := models.StatusParsed
	if !res.Successful {
		status = models.StatusError
	}

	if err := s.finalizeDetached(ctx, t.Kind, t.RecordID, status, rawText, res.Fields); err != nil {
		// A rejected row falls through to the fields-less Error write above.
		finalized = errors.Is(err, apperrors.ErrAlreadyFinalized) || errors.Is(err, apperrors.ErrNotFound)
		log.Error("Failed to save parse result", zap.Error(err))
		return &apperrors.PersistenceError{Op: "finalize", Err: err}
	}
	finalized = true

	log.Info("Document parsed",
		zap.String("status", string(status)),
		zap.String("source", string(res.Source)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !res.Successful {
		return &apperrors.ExtractionError{Kind: string(t.Kind), Err: res.Err}
	}
	return nil
}

func (s *IngestionService) create(ctx context.Context, kind models.DocumentKind, rec *models.Record) error {
	switch kind {
	case models.DocumentKindInvoice:
		return s.invoices.Create(ctx, rec)
	case models.DocumentKindBankStatement:
		return s.statements.Create(ctx, rec)
	}
	return fmt.Errorf("unknown document kind %q", kind)
}

func (s *IngestionService) finalizeDetached(ctx context.Context, kind models.DocumentKind, id uuid.UUID, status models.ParsingStatus, rawText *string, fs models.FieldSet) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	return s.finalize(ctx, kind, id, status, rawText, fs)
}

func (s *IngestionService) finalize(ctx context.Context, kind models.DocumentKind, id uuid.UUID, status models.ParsingStatus, rawText *string, fs models.FieldSet) error {
	switch kind {
	case models.DocumentKindInvoice:
		f, _ := fs.(*models.InvoiceFields)
		return s.invoices.Finalize(ctx, id, status, rawText, f)
	case models.DocumentKindBankStatement:
		f, _ := fs.(*models.BankStatementFields)
		return s.statements.Finalize(ctx, id, status, rawText, f)
	}
	return fmt.Errorf("unknown document kind %q", kind)
}

func (s *IngestionService) ListInvoices(ctx context.Context, filter models.ListFilter) ([]dto.InvoiceResponse, error) {
	invoices, err := s.invoices.List(ctx, filter.Normalize())
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list invoices", Err: err}
	}

	out := make([]dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = dto.NewInvoiceResponse(inv)
	}
	return out, nil
}

func (s *IngestionService) GetInvoice(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRead("get invoice", err)
	}
	resp := dto.NewInvoiceResponse(inv)
	return &resp, nil
}

func (s *IngestionService) ListBankStatements(ctx context.Context, filter models.ListFilter) ([]dto.BankStatementResponse, error) {
	statements, err := s.statements.List(ctx, filter.Normalize())
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list bank statements", Err: err}
	}

	out := make([]dto.BankStatementResponse, len(statements))
	for i, bs := range statements {
		out[i] = dto.NewBankStatementResponse(bs)
	}
	return out, nil
}

func (s *IngestionService) GetBankStatement(ctx context.Context, id uuid.UUID) (*dto.BankStatementResponse, error) {
	bs, err := s.statements.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRead("get bank statement", err)
	}
	resp := dto.NewBankStatementResponse(bs)
	return &resp, nil
}

func wrapRead(op string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return &apperrors.PersistenceError{Op: op, Err: err}
}
