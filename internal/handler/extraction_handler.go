package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ddtft/internal/domain"
	"ddtft/internal/export"
	"ddtft/internal/middleware"
	"ddtft/internal/service"
)

const maxBatchDocuments = 100

// ExtractionHandler handles extraction endpoints.
type ExtractionHandler struct {
	errorHandler
	svc            service.ExtractionService
	maxUploadBytes int64
	now            func() time.Time
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(svc service.ExtractionService, maxUploadBytes int64, log zerolog.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		errorHandler:   errorHandler{log: log},
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

func respondResult(c *gin.Context, res *service.ExtractionResult) {
	if res.Cached {
		RespondOK(c, res)
		return
	}
	RespondCreated(c, res)
}

// Create handles POST /api/v1/extractions
// @Summary Extract a document from text
// @Description Runs the extraction engine on pre-extracted text. Identical input returns the stored result with 200.
// @Tags extractions
// @Accept json
// @Produce json
// @Param body body ExtractRequest true "Document text"
// @Success 201 {object} Response{data=service.ExtractionResult} "Extracted"
// @Success 200 {object} Response{data=service.ExtractionResult} "Previously extracted"
// @Failure 400 {object} ErrorResponseBody "Invalid request or empty text"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 422 {object} ErrorResponseBody "Document type cannot be determined"
// @Failure 504 {object} ErrorResponseBody "Extraction timed out"
// @Security BearerAuth
// @Router /extractions [post]
func (h *ExtractionHandler) Create(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, err := h.svc.Extract(c.Request.Context(), &service.ExtractInput{
		Text:      req.Text,
		Hints:     req.Hints,
		FileName:  req.FileName,
		CreatedBy: middleware.GetSubject(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondResult(c, res)
}

// Upload handles POST /api/v1/extractions/upload
// @Summary Extract an uploaded document
// @Description Upload a PDF or a plain text file. PDF text is rebuilt from glyph positions.
// @Tags extractions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF or TXT document"
// @Success 201 {object} Response{data=service.ExtractionResult} "Extracted"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "Document type cannot be determined"
// @Security BearerAuth
// @Router /extractions/upload [post]
func (h *ExtractionHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		h.HandleError(c, domain.ErrSourceTooLarge)
		return
	}
	reader := io.Reader(file)
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		h.HandleError(c, domain.ErrSourceTooLarge)
		return
	}

	subject := middleware.GetSubject(c)
	var res *service.ExtractionResult
	switch ext := strings.ToLower(path.Ext(header.Filename)); {
	case ext == ".pdf" || bytes.HasPrefix(data, []byte("%PDF")):
		res, err = h.svc.ExtractPDF(c.Request.Context(), &service.PDFInput{
			FileName: header.Filename, Data: data, CreatedBy: subject,
		})
	case ext == ".txt" || ext == "":
		res, err = h.svc.Extract(c.Request.Context(), &service.ExtractInput{
			Text: string(data), FileName: header.Filename, Source: data, CreatedBy: subject,
		})
	default:
		err = domain.ErrUnsupportedFileType
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondResult(c, res)
}

// Batch handles POST /api/v1/extractions/batch
// @Summary Extract a batch of documents
// @Description Documents are extracted in parallel. A failing document does not fail the batch.
// @Tags extractions
// @Accept json
// @Produce json
// @Param body body BatchRequest true "Documents"
// @Success 200 {object} Response{data=BatchResponse} "Per-document outcomes in request order"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /extractions/batch [post]
func (h *ExtractionHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Documents) > maxBatchDocuments {
		RespondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE",
			"a batch holds at most "+strconv.Itoa(maxBatchDocuments)+" documents")
		return
	}

	subject := middleware.GetSubject(c)
	inputs := make([]service.ExtractInput, len(req.Documents))
	for i, d := range req.Documents {
		inputs[i] = service.ExtractInput{Text: d.Text, Hints: d.Hints, FileName: d.FileName, CreatedBy: subject}
	}

	results := h.svc.ExtractBatch(c.Request.Context(), inputs)
	resp := BatchResponse{Items: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{Index: r.Index, FileName: r.FileName}
		if r.Err != nil {
			_, code, msg := MapDomainError(r.Err)
			item.Error = &APIError{Code: code, Message: msg}
			resp.Failed++
		} else {
			item.Result = r.Result
			resp.Succeeded++
		}
		resp.Items[i] = item
	}
	RespondOK(c, resp)
}

// List handles GET /api/v1/extractions
// @Summary List extractions
// @Description Newest first, with pagination
// @Tags extractions
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.ExtractionRecord,meta=PagMeta} "List of extractions"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /extractions [get]
func (h *ExtractionHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	recs, total, err := h.svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/extractions/:id
// @Summary Get extraction by ID
// @Description Stored document, diagnostics and a fresh validation report
// @Tags extractions
// @Produce json
// @Param id path string true "Extraction ID (UUID)"
// @Success 200 {object} Response{data=service.ExtractionResult} "Extraction"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Extraction not found"
// @Security BearerAuth
// @Router /extractions/{id} [get]
func (h *ExtractionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return
	}

	res, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	RespondOK(c, res)
}

// Source handles GET /api/v1/extractions/:id/source
// @Summary Get a download link for the archived source
// @Tags extractions
// @Produce json
// @Param id path string true "Extraction ID (UUID)"
// @Success 200 {object} Response{data=SourceURLResponse} "Presigned URL"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Extraction not found or source not archived"
// @Security BearerAuth
// @Router /extractions/{id}/source [get]
func (h *ExtractionHandler) Source(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return
	}

	url, err := h.svc.SourceURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	RespondOK(c, SourceURLResponse{URL: url})
}

// Reextract handles POST /api/v1/extractions/:id/reextract
// @Summary Re-run extraction on the archived source
// @Description Stores the outcome as a new extraction that shares the archived source
// @Tags extractions
// @Produce json
// @Param id path string true "Extraction ID (UUID)"
// @Success 201 {object} Response{data=service.ExtractionResult} "New extraction"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Extraction not found or source not archived"
// @Failure 422 {object} ErrorResponseBody "Document could not be extracted"
// @Security BearerAuth
// @Router /extractions/{id}/reextract [post]
func (h *ExtractionHandler) Reextract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return
	}

	res, err := h.svc.Reextract(c.Request.Context(), id, middleware.GetSubject(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	RespondCreated(c, res)
}

// Export handles GET /api/v1/extractions/export
// @Summary Export extractions as a spreadsheet
// @Description Selected extractions, or the latest ones when ids is empty
// @Tags extractions
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Param ids query string false "Comma separated extraction IDs"
// @Success 200 {file} file "Spreadsheet"
// @Failure 400 {object} ErrorResponseBody "Invalid format or ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /extractions/export [get]
func (h *ExtractionHandler) Export(c *gin.Context) {
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatCSV))))
	if !domain.ValidExportFormats[format] {
		h.HandleError(c, domain.ErrInvalidExportFormat)
		return
	}

	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), ids, format, &buf); err != nil {
		h.HandleError(c, err)
		return
	}

	filename := export.BuildFilename("estrazioni", format, h.now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, errors.New("invalid extraction ID: " + p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
