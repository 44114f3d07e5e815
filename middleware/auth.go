package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/auth"
)

const (
	identityKey = "auth.identity"
	SignInPath  = "/auth/signin"
)

// CookieConfig describes the session cookie. The cookie only carries the
// session id; the token stays server side.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func SetSessionCookie(c *gin.Context, cfg CookieConfig, sessionID string, expiresAt time.Time) {
	maxAge := cfg.MaxAge
	if !expiresAt.IsZero() {
		if left := time.Until(expiresAt); left < maxAge || maxAge <= 0 {
			maxAge = left
		}
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.Name, sessionID, int(maxAge.Seconds()), "/", "", cfg.Secure, true)
}

func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}

// SessionID returns the session id the browser presented, or "".
func SessionID(c *gin.Context, cfg CookieConfig) string {
	id, err := c.Cookie(cfg.Name)
	if err != nil {
		return ""
	}
	return id
}

// RequireLogin attaches the server-held session to the request. Requests
// without a live session get a 401, or a redirect to the sign-in page when a
// browser is navigating. onEnded, when set, releases per-session state held
// outside the session store once the session is found gone.
func RequireLogin(guard *auth.Guard, cfg CookieConfig, logger *zap.Logger, onEnded func(sessionID string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := SessionID(c, cfg)
		if id == "" {
			unauthenticated(c)
			return
		}

		actx, err := guard.Attach(c.Request.Context(), id)
		if errors.Is(err, auth.ErrUnauthenticated) {
			if onEnded != nil {
				onEnded(id)
			}
			ClearSessionCookie(c, cfg)
			unauthenticated(c)
			return
		}
		if err != nil {
			logger.Error("Session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
			return
		}

		// The cookie rolls with the session.
		SetSessionCookie(c, cfg, actx.SessionID, actx.ExpiresAt)
		c.Set(identityKey, actx)
		c.Next()
	}
}

// RequireAdmin must run after RequireLogin.
func RequireAdmin(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, _ := Identity(c)
		if err := guard.RequireAdmin(actx); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, auth.ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// Identity returns the context attached by RequireLogin.
func Identity(c *gin.Context) (*auth.AuthenticatedContext, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	actx, ok := v.(*auth.AuthenticatedContext)
	return actx, ok
}

// IsNavigation reports whether the request is a browser page load rather
// than an API call.
func IsNavigation(c *gin.Context) bool {
	return c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/html")
}

func unauthenticated(c *gin.Context) {
	if IsNavigation(c) {
		c.Redirect(http.StatusSeeOther, SignInPath)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrUnauthenticated.Error()})
}
