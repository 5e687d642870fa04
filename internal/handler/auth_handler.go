package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
	appErrors "github.com/noah-isme/schoolorbit-auth-api/pkg/errors"
	"github.com/noah-isme/schoolorbit-auth-api/pkg/response"
)

// AuthHandler wires the authentication endpoints to the auth service. Token
// material travels exclusively in cookies; response bodies carry only the
// identity snapshot.
type AuthHandler struct {
	service *service.AuthService
	cookies *CookieWriter
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookies *CookieWriter) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies}
}

// Login godoc
// @Summary Authenticate an actor
// @Description Authenticate by actor type and external identifier; sets access, refresh, and csrf cookies
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, creds, err := h.service.Login(c.Request.Context(), h.tenantID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.Write(c, creds)
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Rotate the refresh credential
// @Description Exchange the refresh cookie for fresh access, refresh, and csrf cookies
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	credential, err := c.Cookie(refreshCookieName)
	if err != nil || credential == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing refresh token"))
		return
	}

	meta := models.DeviceMeta{UserAgent: c.GetHeader("User-Agent"), IP: c.ClientIP()}
	_, creds, err := h.service.Refresh(c.Request.Context(), h.tenantID(c), credential, meta)
	if err != nil {
		h.cookies.Clear(c)
		response.Error(c, err)
		return
	}

	h.cookies.Write(c, creds)
	response.NoContent(c)
}

// Logout godoc
// @Summary Logout
// @Description Revoke every session of the authenticated actor and clear cookies
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims.ActorID()); err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.Clear(c)
	response.NoContent(c)
}

// Me godoc
// @Summary Get the current actor
// @Description Profile plus the roles, permissions, and context embedded in the access token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Me(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Verify the current password, store the new one, revoke all sessions
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), claims.ActorID(), &req); err != nil {
		response.Error(c, err)
		return
	}

	// All sessions are gone, including this one.
	h.cookies.Clear(c)
	response.NoContent(c)
}

func (h *AuthHandler) tenantID(c *gin.Context) string {
	if tenant := tenantFromContext(c); tenant != nil {
		return tenant.TenantID
	}
	return ""
}
