package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-game-frontend/middleware"
	"stock-game-frontend/models"
)

type AuthInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type SignupInput struct {
	AuthInput
	Passcode string `json:"passcode" form:"passcode"`
}

func sessionBody(s *models.Session) gin.H {
	return gin.H{
		"username":   s.Username,
		"isAdmin":    s.IsAdmin,
		"expires_at": s.ExpiresAt,
	}
}

func (h *Handler) SignIn(c *gin.Context) {
	var input AuthInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.guard.VerifyCredentials(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookies, s.ID, s.ExpiresAt)
	c.JSON(http.StatusOK, sessionBody(s))
}

func (h *Handler) SignUp(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.guard.Register(c.Request.Context(), input.Username, input.Password, input.Passcode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookies, s.ID, s.ExpiresAt)
	c.JSON(http.StatusCreated, sessionBody(s))
}

// Logout always lands on the sign-in page, with or without a session.
func (h *Handler) Logout(c *gin.Context) {
	if id := middleware.SessionID(c, h.cookies); id != "" {
		if err := h.guard.Logout(c.Request.Context(), id); err != nil {
			h.logger.Warn("Failed to drop session on logout", zap.Error(err))
		}
		h.forgetSession(id)
	}
	middleware.ClearSessionCookie(c, h.cookies)
	c.Redirect(http.StatusSeeOther, middleware.SignInPath)
}

func (h *Handler) Me(c *gin.Context) {
	actx := h.identity(c)
	c.JSON(http.StatusOK, gin.H{
		"username":   actx.Username,
		"isAdmin":    actx.IsAdmin,
		"expires_at": actx.ExpiresAt,
	})
}
