package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/diary/internal/model"
	"github.com/kube-rca/diary/internal/security"
	"github.com/kube-rca/diary/internal/service"
)

type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.AuthRequest true "Username and password"
// @Success 201 {object} model.AuthEnvelope
// @Failure 400 {object} model.ErrorEnvelope
// @Failure 500 {object} model.ErrorEnvelope
// @Router /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorEnvelope("invalid request"))
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, model.AuthEnvelope{
		Success: true,
		Data:    result,
		Message: "user registered",
	})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.AuthRequest true "Username and password"
// @Success 200 {object} model.AuthEnvelope
// @Failure 400 {object} model.ErrorEnvelope
// @Failure 401 {object} model.ErrorEnvelope
// @Failure 500 {object} model.ErrorEnvelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorEnvelope("invalid request"))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, model.AuthEnvelope{
		Success: true,
		Data:    result,
		Message: "login successful",
	})
}

// writeError maps a service error to its public category. Causes are logged,
// never returned to the client.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.NewErrorEnvelope("invalid input"))
	case errors.Is(err, security.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, model.NewErrorEnvelope("password too long"))
	case errors.Is(err, service.ErrDuplicateUsername):
		c.JSON(http.StatusBadRequest, model.NewErrorEnvelope("username already exists"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, model.NewErrorEnvelope("invalid username or password"))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.NewErrorEnvelope("unauthorized"))
	default:
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, model.NewErrorEnvelope("internal server error"))
	}
}
