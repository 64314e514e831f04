package service

import (
	"context"
	"errors"
	"sync"

	"trustbooks/internal/extract/fields"
	"trustbooks/internal/extract/text"
	"trustbooks/internal/models"
	"trustbooks/internal/queue"
	"trustbooks/internal/storage"
	"trustbooks/pkg/apperrors"

	"github.com/google/uuid"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
	failPut error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return m.failPut
	}
	m.writes++
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memStorage) Close() error { return nil }

// memTable mimics the finalize guard of the SQL repositories. Like a pgx
// query, Finalize fails on a finished context. rejectFields fails any
// finalize that carries extracted fields, the way a column overflow would.
type memTable[T any] struct {
	mu           sync.Mutex
	records      map[uuid.UUID]*models.Record
	fields       map[uuid.UUID]*T
	failWrite    error
	rejectFields error
}

func newMemTable[T any]() *memTable[T] {
	return &memTable[T]{records: map[uuid.UUID]*models.Record{}, fields: map[uuid.UUID]*T{}}
}

func (m *memTable[T]) Create(ctx context.Context, rec *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	r := *rec
	m.records[rec.ID] = &r
	return nil
}

func (m *memTable[T]) Finalize(ctx context.Context, id uuid.UUID, status models.ParsingStatus, rawText *string, f *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f != nil && m.rejectFields != nil {
		return m.rejectFields
	}
	rec, ok := m.records[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if rec.Status != models.StatusProcessing {
		return apperrors.ErrAlreadyFinalized
	}
	rec.Status = status
	rec.RawText = rawText
	if f == nil {
		f = new(T)
	}
	m.fields[id] = f
	return nil
}

func (m *memTable[T]) get(id uuid.UUID) (*models.Record, *T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil, apperrors.ErrNotFound
	}
	f := m.fields[id]
	if f == nil {
		f = new(T)
	}
	return rec, f, nil
}

func (m *memTable[T]) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memInvoices struct{ *memTable[models.InvoiceFields] }

func (m memInvoices) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	rec, f, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return &models.Invoice{Record: *rec, InvoiceFields: *f}, nil
}

func (m memInvoices) List(ctx context.Context, filter models.ListFilter) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for id := range m.records {
		inv, _ := m.GetByID(ctx, id)
		if filter.Status == nil || inv.Status == *filter.Status {
			out = append(out, inv)
		}
	}
	return out, nil
}

type memStatements struct{ *memTable[models.BankStatementFields] }

func (m memStatements) GetByID(ctx context.Context, id uuid.UUID) (*models.BankStatement, error) {
	rec, f, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return &models.BankStatement{Record: *rec, BankStatementFields: *f}, nil
}

func (m memStatements) List(ctx context.Context, filter models.ListFilter) ([]*models.BankStatement, error) {
	var out []*models.BankStatement
	for id := range m.records {
		bs, _ := m.GetByID(ctx, id)
		if filter.Status == nil || bs.Status == *filter.Status {
			out = append(out, bs)
		}
	}
	return out, nil
}

// recordingDispatcher keeps submitted tasks so tests can run them by hand.
type recordingDispatcher struct {
	tasks []queue.Task
	err   error
}

func (d *recordingDispatcher) Submit(ctx context.Context, t queue.Task) error {
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, t)
	return nil
}

func (d *recordingDispatcher) Shutdown(ctx context.Context) error { return nil }

func (d *recordingDispatcher) Stats() queue.Stats {
	return queue.Stats{Submitted: int64(len(d.tasks))}
}

// blockingText holds extraction until the task context ends.
type blockingText struct {
	started chan struct{}
}

func (b *blockingText) Extract(ctx context.Context, filename string, data []byte) (text.Document, error) {
	close(b.started)
	<-ctx.Done()
	return text.Document{}, ctx.Err()
}

type panickingFields struct{}

func (panickingFields) For(kind models.DocumentKind) (fields.Extractor, error) {
	return panickingExtractor{kind: kind}, nil
}

type panickingExtractor struct{ kind models.DocumentKind }

func (p panickingExtractor) Kind() models.DocumentKind { return p.kind }

func (p panickingExtractor) Extract(ctx context.Context, doc text.Document) fields.Result {
	panic("index out of range")
}

var errBoom = errors.New("boom")
