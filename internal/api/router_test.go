package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"trustbooks/internal/api/handlers"
	"trustbooks/internal/dto"
	"trustbooks/internal/models"
	"trustbooks/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	uploads    []models.DocumentKind
	uploadName string
	uploadErr  error
	lastFilter models.ListFilter
	invoice    *dto.InvoiceResponse
}

func (f *fakeService) Upload(ctx context.Context, kind models.DocumentKind, filename, contentType string, data []byte) (*dto.UploadResponse, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, kind)
	f.uploadName = filename
	id := uuid.New()
	return &dto.UploadResponse{
		Message:  kind.Label() + " uploaded successfully. Parsing in progress.",
		FileID:   id.String(),
		FilePath: kind.StorageDir() + "/" + id.String() + "_" + filename,
		Status:   "Processing",
	}, nil
}

func (f *fakeService) ListInvoices(ctx context.Context, filter models.ListFilter) ([]dto.InvoiceResponse, error) {
	f.lastFilter = filter
	return []dto.InvoiceResponse{}, nil
}

func (f *fakeService) GetInvoice(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	if f.invoice == nil || f.invoice.ID != id.String() {
		return nil, apperrors.ErrNotFound
	}
	return f.invoice, nil
}

func (f *fakeService) ListBankStatements(ctx context.Context, filter models.ListFilter) ([]dto.BankStatementResponse, error) {
	f.lastFilter = filter
	return []dto.BankStatementResponse{}, nil
}

func (f *fakeService) GetBankStatement(ctx context.Context, id uuid.UUID) (*dto.BankStatementResponse, error) {
	return nil, apperrors.ErrNotFound
}

func newTestApp(svc handlers.IngestionService) *fiber.App {
	logger := zap.NewNop()
	return SetupRouter(
		handlers.NewInvoiceHandler(svc, logger),
		handlers.NewBankStatementHandler(svc, logger),
		handlers.NewHealthHandler(),
		RouterConfig{MaxFileSize: 1 << 20},
		logger,
	)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func TestUploadInvoice(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	body, ct := multipartBody(t, map[string]string{"inv.csv": "a,b"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-invoice", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Process-Time"))

	var out dto.UploadResponse
	decode(t, resp, &out)
	assert.Equal(t, "Processing", out.Status)
	assert.Equal(t, []models.DocumentKind{models.DocumentKindInvoice}, svc.uploads)
	assert.Equal(t, "inv.csv", svc.uploadName)
}

func TestUploadBankStatement_RoutesKind(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	body, ct := multipartBody(t, map[string]string{"s.csv": "a,b"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-bank-statement", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, []models.DocumentKind{models.DocumentKindBankStatement}, svc.uploads)
}

func TestUpload_FilePartCount(t *testing.T) {
	app := newTestApp(&fakeService{})

	body, ct := multipartBody(t, map[string]string{"a.csv": "x", "b.csv": "y"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-invoice", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload-invoice", body)
	req.Header.Set("Content-Type", ct)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var out dto.ErrorResponse
	decode(t, resp, &out)
	assert.Equal(t, "No file provided", out.Error)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload-invoice", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperrors.NewValidationError("file", "a.png", "Unsupported file type"), fiber.StatusBadRequest},
		{"storage", &apperrors.StorageError{Op: "put", Path: "p", Err: assert.AnError}, fiber.StatusInternalServerError},
		{"persistence", &apperrors.PersistenceError{Op: "create", Err: assert.AnError}, fiber.StatusInternalServerError},
		{"other", assert.AnError, fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeService{uploadErr: tt.err})
			body, ct := multipartBody(t, map[string]string{"a.csv": "x"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-invoice", body)
			req.Header.Set("Content-Type", ct)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestGetInvoice(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{invoice: &dto.InvoiceResponse{ID: id.String(), Status: "Parsed"}}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out dto.InvoiceResponse
	decode(t, resp, &out)
	assert.Equal(t, id.String(), out.ID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bank-statements/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListFilters(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/invoices?limit=500&offset=5&status=Parsed", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.MaxListLimit, svc.lastFilter.Limit)
	assert.Equal(t, 5, svc.lastFilter.Offset)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.StatusParsed, *svc.lastFilter.Status)

	var out []dto.InvoiceResponse
	decode(t, resp, &out)
	assert.Empty(t, out)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bank-statements", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.DefaultListLimit, svc.lastFilter.Limit)
	assert.Nil(t, svc.lastFilter.Status)

	for _, q := range []string{"status=Done", "limit=abc", "offset=-1"} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bank-statements?"+q, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestRootAndHealth(t *testing.T) {
	app := newTestApp(&fakeService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	var root dto.RootResponse
	decode(t, resp, &root)
	assert.Equal(t, "TrustBooks Backend API", root.Message)
	assert.Equal(t, handlers.Version, root.Version)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Empty(t, raw)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
