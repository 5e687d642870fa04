package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/schoolorbit-auth-api/internal/middleware"
	"github.com/noah-isme/schoolorbit-auth-api/internal/models"
)

func testAuthHandler() *AuthHandler {
	return NewAuthHandler(nil, NewCookieWriter(false, 14*24*time.Hour))
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerRefreshWithoutCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)

	handler.Refresh(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// No cookies issued on failure before the service is reached.
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandlerLogoutWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

	handler.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMeWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerChangePasswordRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader("{not json"))
	claims := &models.AccessClaims{}
	claims.Subject = "u1"
	c.Set(middleware.ContextUserKey, claims)

	handler.ChangePassword(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
