package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolorbit-auth-api/internal/service"
)

// Cookie names. Clients never see token material outside these cookies.
const (
	accessCookieName  = "access"
	refreshCookieName = "refresh"
	csrfCookieName    = "csrf"
)

// refreshCookiePath scopes the refresh credential to the auth endpoints so it
// never rides along on ordinary API traffic.
const refreshCookiePath = "/auth"

const csrfCookieMaxAge = int(time.Hour / time.Second)

// CookieWriter centralizes the cookie contract. Attributes are fixed; only
// the Secure flag varies by environment.
type CookieWriter struct {
	secure     bool
	refreshTTL time.Duration
}

// NewCookieWriter constructs a CookieWriter. secure should be true outside
// development so cookies require TLS.
func NewCookieWriter(secure bool, refreshTTL time.Duration) *CookieWriter {
	return &CookieWriter{secure: secure, refreshTTL: refreshTTL}
}

// Write sets the three auth cookies from a freshly issued credential set.
func (w *CookieWriter) Write(c *gin.Context, creds *service.IssuedCredentials) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     accessCookieName,
		Value:    creds.AccessToken,
		Path:     "/",
		MaxAge:   int(service.AccessTokenTTL / time.Second),
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    creds.RefreshCredential,
		Path:     refreshCookiePath,
		MaxAge:   int(w.refreshTTL / time.Second),
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	// Readable by scripts: the SPA echoes it back in a header for
	// double-submit verification.
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    creds.CSRFToken,
		Path:     "/",
		MaxAge:   csrfCookieMaxAge,
		Secure:   w.secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires all three cookies with the same paths and flags they were set
// under, so browsers actually drop them.
func (w *CookieWriter) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		Secure:   w.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   w.secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}
