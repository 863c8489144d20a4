package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
	log            zerolog.Logger
}

func NewSettingHandler(settingService *service.SettingService, log zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		log:            log.With().Str("component", "setting_handler").Logger(),
	}
}

// GetTimeLimit godoc
// GET /api/settings/time-limit
// minutes is null when no limit has been stored.
func (h *SettingHandler) GetTimeLimit(c *gin.Context) {
	minutes, err := h.settingService.GetTimeLimitMinutes(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"minutes": minutes})
}

// SetTimeLimit godoc
// POST /api/settings/time-limit
func (h *SettingHandler) SetTimeLimit(c *gin.Context) {
	var req model.TimeLimitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	minutes, err := h.settingService.SetTimeLimitMinutes(c.Request.Context(), *req.Minutes)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"success": true, "minutes": minutes})
}

// GetPassingThreshold godoc
// GET /api/settings/passing-threshold
// percent is null when unset; readers apply the default of 80.
func (h *SettingHandler) GetPassingThreshold(c *gin.Context) {
	percent, err := h.settingService.GetPassingThreshold(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"percent": percent})
}

// SetPassingThreshold godoc
// POST /api/settings/passing-threshold
func (h *SettingHandler) SetPassingThreshold(c *gin.Context) {
	var req model.PassingThresholdRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	percent, err := h.settingService.SetPassingThreshold(c.Request.Context(), *req.Percent)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"success": true, "percent": percent})
}

// GetExamTitle godoc
// GET /api/settings/exam-title
func (h *SettingHandler) GetExamTitle(c *gin.Context) {
	title, err := h.settingService.GetExamTitle(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"title": title})
}

// SetExamTitle godoc
// POST /api/settings/exam-title
func (h *SettingHandler) SetExamTitle(c *gin.Context) {
	var req model.ExamTitleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	title, err := h.settingService.SetExamTitle(c.Request.Context(), req.Title)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"success": true, "title": title})
}
