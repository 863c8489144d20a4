package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/sheet"
	"github.com/stemsi/quizdesk/internal/validator"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	maxUploadBytes  int64
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, maxUploadBytes int64, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		maxUploadBytes:  maxUploadBytes,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questionService.List(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}
	response.OK(c, http.StatusOK, questions)
}

// CreateQuestion godoc
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Create(c.Request.Context(), req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": q.ID})
}

// UpdateQuestion godoc
// PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.Update(c.Request.Context(), id, req); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Done(c, http.StatusOK)
}

// DeleteQuestion godoc
// DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Done(c, http.StatusOK)
}

// ClearQuestions godoc
// POST /api/questions/clear-all
func (h *QuestionHandler) ClearQuestions(c *gin.Context) {
	n, err := h.questionService.ClearAll(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, model.ClearResponse{Success: true, Deleted: n})
}

// ImportQuestions godoc
// POST /api/questions/import?skipHeader=true
// Multipart field "file" holds an .xlsx workbook. Responds after every row
// has been inserted or rejected.
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" && ext != ".xlsm" {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}

	skipHeader, _ := strconv.ParseBool(c.Query("skipHeader"))

	report, err := h.questionService.Import(c.Request.Context(), file, skipHeader)
	if err != nil {
		if errors.Is(err, sheet.ErrUnreadable) {
			h.log.Warn().Err(err).Str("filename", header.Filename).Msg("Rejected unreadable upload")
			response.FailWithMessage(c, http.StatusBadRequest, response.ErrUnsupportedFile, "Failed to parse Excel file")
			return
		}
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, report)
}
