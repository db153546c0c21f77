// Package handler exposes the sign-in HTTP surface: OAuth begin/callback,
// password register/login, and logout. The callback endpoint is the
// single redirect re-entry point; everything funnels into the resolver.
package handler

import (
	"errors"
	"net/http"
	"time"

	"access-service/internal/auth"
	"access-service/internal/auth/credentials"
	"access-service/internal/auth/provider"
	"access-service/internal/auth/resolver"
	"access-service/internal/logger"
	"access-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	providers       *provider.Registry
	sessionStore    session.Store
	resolver        resolver.Resolver
	credentials     *credentials.Service
	sessionLifetime time.Duration
	secureCookies   bool
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	res resolver.Resolver,
	creds *credentials.Service,
	sessionLifetime time.Duration,
	secureCookies bool,
) *Handler {
	return &Handler{
		providers:       registry,
		sessionStore:    sessionStore,
		resolver:        res,
		credentials:     creds,
		sessionLifetime: sessionLifetime,
		secureCookies:   secureCookies,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.passwordLogin)
	r.POST("/auth/logout", h.logout)
}

// login begins an OAuth sign-in. Both popup and redirect frontends hit
// this endpoint; the response is always a 302 to the provider.
func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state := generateState(c)
	_, codeChallenge := generatePKCE(c)

	authURL := p.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

// callback consumes the provider's redirect result. It runs at most once
// per provider return; ordinary page loads never reach it.
func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	// User backed out at the consent screen. Not an error: no-op,
	// back to the login page.
	if errParam := c.Query("error"); errParam != "" {
		if errParam == "access_denied" {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		logger.Warn("oauth callback returned error",
			zap.String("provider", providerName),
			zap.String("error", errParam),
			zap.String("desc", c.Query("error_description")),
		)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	identity, err := p.ExchangeCode(
		c.Request.Context(),
		code,
		codeVerifier,
	)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, provider.ErrProviderUnavailable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": "authentication failed",
		})
		return
	}

	h.finishSignIn(c, identity)
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	identity, err := h.credentials.Register(
		c.Request.Context(),
		req.Email,
		req.Password,
		req.DisplayName,
	)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	h.finishSignIn(c, identity)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) passwordLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	identity, err := h.credentials.Authenticate(
		c.Request.Context(),
		req.Email,
		req.Password,
	)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.finishSignIn(c, identity)
}

// finishSignIn runs the resolver and translates its outcome. A session
// is only ever opened on the signed-in outcome, so an awaiting user
// never holds one and there is nothing to tear down.
func (h *Handler) finishSignIn(c *gin.Context, identity *auth.Identity) {
	outcome, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		logger.Error("sign-in resolution failed",
			zap.String("provider", identity.Provider),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "sign-in temporarily unavailable",
		})
		return
	}

	if outcome.State == resolver.StateAwaitingApproval {
		c.JSON(http.StatusAccepted, gin.H{
			"status":       "pending_approval",
			"requested_at": outcome.RequestedAt.UTC(),
		})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.sessionLifetime)

	sess := session.Session{
		SessionID: sessionID,
		UserID:    outcome.Profile.ID,
		Role:      string(outcome.Profile.Role),
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("sign-in succeeded",
		zap.String("user_id", outcome.Profile.ID),
		zap.String("role", string(outcome.Profile.Role)),
		zap.String("ip", c.ClientIP()),
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
		"role":   outcome.Profile.Role,
	})
}

func (h *Handler) logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		_ = h.sessionStore.Delete(c.Request.Context(), cookie.Value)
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Path:     "/",
		Secure:   h.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Status(http.StatusNoContent)
}
