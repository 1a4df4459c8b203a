package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/campus-backend/internal/domain/domainerr"
	"github.com/yungbote/campus-backend/internal/http/response"
	"github.com/yungbote/campus-backend/internal/platform/ctxutil"
	"github.com/yungbote/campus-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/auth/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	pair, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.RespondError(c, http.StatusUnauthorized, "invalid_credentials", services.ErrInvalidCredentials)
			return
		}
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, pair)
}

// POST /api/auth/refresh
// body: { "refresh_token": "..." }
func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("refresh_token is required"))
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch domainerr.Classify(err) {
		case domainerr.CodeNotFound, domainerr.CodeValidation:
			response.RespondError(c, http.StatusUnauthorized, "refresh_failed", errors.New("refresh token is invalid or expired"))
		default:
			response.RespondDomainError(c, err)
		}
		return
	}
	response.RespondOK(c, pair)
}

// POST /api/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := ah.authService.Logout(c.Request.Context(), rd.UserID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
