package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/sheet"
	"github.com/stemsi/quizdesk/internal/validator"
)

// ExportFilename is the attachment name of the results workbook.
const ExportFilename = "results_export.xlsx"

// ResultHandler handles result log endpoints.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// ListResults godoc
// GET /api/results
func (h *ResultHandler) ListResults(c *gin.Context) {
	results, err := h.resultService.List(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	response.OK(c, http.StatusOK, results)
}

// CreateResult godoc
// POST /api/results
func (h *ResultHandler) CreateResult(c *gin.Context) {
	var req model.CreateResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, validator.Summary(fields))
		return
	}

	res, err := h.resultService.Append(c.Request.Context(), req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": res.ID})
}

// DeleteResult godoc
// DELETE /api/results/:id
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.resultService.Delete(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Done(c, http.StatusOK)
}

// ClearResults godoc
// POST /api/results/clear-all
func (h *ResultHandler) ClearResults(c *gin.Context) {
	n, err := h.resultService.ClearAll(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, model.ClearResponse{Success: true, Deleted: n})
}

// ExportResults godoc
// GET /api/results/export
// The workbook is built in memory so a failure can still produce a JSON error.
func (h *ResultHandler) ExportResults(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.resultService.Export(c.Request.Context(), &buf); err != nil {
		failService(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Data(http.StatusOK, sheet.ContentType, buf.Bytes())
}
