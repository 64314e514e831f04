package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"

	"trustbooks/internal/dto"
	"trustbooks/internal/models"
	"trustbooks/pkg/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestionService is what the document handlers need from the service
// layer.
type IngestionService interface {
	Upload(ctx context.Context, kind models.DocumentKind, filename, contentType string, data []byte) (*dto.UploadResponse, error)
	ListInvoices(ctx context.Context, filter models.ListFilter) ([]dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	ListBankStatements(ctx context.Context, filter models.ListFilter) ([]dto.BankStatementResponse, error)
	GetBankStatement(ctx context.Context, id uuid.UUID) (*dto.BankStatementResponse, error)
}

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

// singleFile reads the only file part of a multipart request.
func singleFile(c *fiber.Ctx) (*uploadedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("file", "", "No file provided")
	}

	var count int
	var name string
	for field, headers := range form.File {
		count += len(headers)
		name = field
	}
	switch {
	case count == 0:
		return nil, apperrors.NewValidationError("file", "", "No file provided")
	case count > 1:
		return nil, apperrors.NewValidationError("file", "", "Exactly one file is allowed per upload")
	}

	fh := form.File[name][0]
	src, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("file", fh.Filename, "Failed to open file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperrors.NewValidationError("file", fh.Filename, "Failed to read file")
	}

	return &uploadedFile{
		name:        fh.Filename,
		contentType: fh.Header.Get(fiber.HeaderContentType),
		data:        data,
	}, nil
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("id", c.Params("id"), "Invalid ID format")
	}
	return id, nil
}

func parseListFilter(c *fiber.Ctx) (models.ListFilter, error) {
	var f models.ListFilter

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperrors.NewValidationError("limit", v, "must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperrors.NewValidationError("offset", v, "must be a non-negative integer")
		}
		f.Offset = n
	}
	if v := c.Query("status"); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			return f, apperrors.NewValidationError("status", v, "must be one of Processing, Parsed, Error")
		}
		f.Status = &status
	}

	return f.Normalize(), nil
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error, logger *zap.Logger) error {
	var validation *apperrors.ValidationError
	var storageErr *apperrors.StorageError
	var persistErr *apperrors.PersistenceError

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validation.Reason,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Record not found",
		})
	case errors.As(err, &storageErr):
		logger.Error("Storage failure", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload file to storage",
		})
	case errors.As(err, &persistErr):
		logger.Error("Database failure", zap.String("op", persistErr.Op), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to " + persistErr.Op + " record",
		})
	}

	logger.Error("Unexpected error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
