package http

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
	"github.com/sirupsen/logrus"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookies     CookieConfig
	log         logrus.FieldLogger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookies CookieConfig, log logrus.FieldLogger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookies:     cookies,
		log:         log.WithField("component", "http"),
	}
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	message, err := h.authService.IssueChallenge(c.Request.Context(), req.Identity)
	if err != nil {
		h.abortWithError(c, err, "Failed to create challenge")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Identity  string       `json:"identity" binding:"required"`
		Signature string       `json:"signature" binding:"required"`
		Profile   core.Profile `json:"profile"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed signature"})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Identity, signature, req.Profile)
	if err != nil {
		h.abortWithError(c, err, "Failed to login")
		return
	}

	h.setSessionCookie(c, session)
	c.Status(http.StatusNoContent)
}

// User returns the authenticated user
func (h *AuthHandlers) User(c *gin.Context) {
	session := SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"identity": session.Identity,
			"profile":  session.Profile,
		},
	})
}

// Logout ends the session behind the inbound credential, if any
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), credential(c, h.cookies.Name)); err != nil {
		h.abortWithError(c, err, "Failed to logout")
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// abortWithError maps service errors to status codes. The three
// verification failures share one response so callers cannot tell them apart.
func (h *AuthHandlers) abortWithError(c *gin.Context, err error, fallback string) {
	switch {
	case core.IsAuthFailure(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
	case errors.Is(err, core.ErrMalformedSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed signature"})
	case errors.Is(err, core.ErrInvalidIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid identity"})
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, session *core.Session) {
	maxAge := 0
	if !session.ExpiresAt.IsZero() {
		maxAge = int(session.ExpiresAt.Sub(session.IssuedAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.Name, session.ID, maxAge, "/", "", h.cookies.Secure, true)
}

func (h *AuthHandlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookies.Name, "", -1, "/", "", h.cookies.Secure, true)
}
