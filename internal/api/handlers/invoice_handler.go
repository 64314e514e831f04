package handlers

import (
	"trustbooks/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	service IngestionService
	logger  *zap.Logger
}

func NewInvoiceHandler(service IngestionService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
		logger:  logger,
	}
}

// Upload godoc
// @Summary Upload an invoice
// @Description Upload one invoice file (PDF, CSV, XLS, XLSX). Parsing runs in the background.
// @Tags invoices
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Invoice file"
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/upload-invoice [post]
func (h *InvoiceHandler) Upload(c *fiber.Ctx) error {
	file, err := singleFile(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	resp, err := h.service.Upload(c.UserContext(), models.DocumentKindInvoice, file.name, file.contentType, file.data)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Param status query string false "Processing, Parsed or Error"
// @Success 200 {array} dto.InvoiceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	filter, err := parseListFilter(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	invoices, err := h.service.ListInvoices(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.JSON(invoices)
}

// Get godoc
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	invoice, err := h.service.GetInvoice(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.JSON(invoice)
}
