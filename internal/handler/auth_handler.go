package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/validator"
)

// AuthHandler handles the teacher PIN gate.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// UnlockPIN godoc
// POST /api/auth/pin
// Exchanges the teacher PIN for a short-lived admin token.
func (h *AuthHandler) UnlockPIN(c *gin.Context) {
	var req model.PinRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, expiresAt, err := h.authService.Unlock(req.PIN)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPIN) {
			h.log.Warn().Str("ip", c.ClientIP()).Msg("Rejected PIN attempt")
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidPIN)
			return
		}
		failService(c, h.log, err)
		return
	}

	h.log.Info().Str("ip", c.ClientIP()).Msg("Teacher view unlocked")
	response.OK(c, http.StatusOK, gin.H{"token": token, "expiresAt": expiresAt})
}
