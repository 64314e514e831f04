package handlers

import (
	"trustbooks/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type BankStatementHandler struct {
	service IngestionService
	logger  *zap.Logger
}

func NewBankStatementHandler(service IngestionService, logger *zap.Logger) *BankStatementHandler {
	return &BankStatementHandler{
		service: service,
		logger:  logger,
	}
}

// Upload godoc
// @Summary Upload a bank statement
// @Description Upload one bank statement file (PDF, CSV, XLS, XLSX). Parsing runs in the background.
// @Tags bank-statements
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Bank statement file"
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/upload-bank-statement [post]
func (h *BankStatementHandler) Upload(c *fiber.Ctx) error {
	file, err := singleFile(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	resp, err := h.service.Upload(c.UserContext(), models.DocumentKindBankStatement, file.name, file.contentType, file.data)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List godoc
// @Summary List bank statements
// @Tags bank-statements
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Offset"
// @Param status query string false "Processing, Parsed or Error"
// @Success 200 {array} dto.BankStatementResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/bank-statements [get]
func (h *BankStatementHandler) List(c *fiber.Ctx) error {
	filter, err := parseListFilter(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	statements, err := h.service.ListBankStatements(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.JSON(statements)
}

// Get godoc
// @Summary Get a bank statement
// @Tags bank-statements
// @Produce json
// @Param id path string true "Bank statement ID"
// @Success 200 {object} dto.BankStatementResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/bank-statements/{id} [get]
func (h *BankStatementHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	statement, err := h.service.GetBankStatement(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, h.logger)
	}

	return c.JSON(statement)
}
