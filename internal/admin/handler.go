package admin

import (
	"errors"
	"net/http"

	"access-service/internal/account"
	"access-service/internal/middleware"
	"access-service/internal/token"

	"github.com/gin-gonic/gin"
)

// Handler exposes the administrative HTTP surface. Every route except
// token minting is bearer-token authenticated; token minting exchanges
// a live admin session for a short-lived API token.
type Handler struct {
	service *Service
	tokens  *token.Manager
	store   account.Store
}

func NewHandler(service *Service, tokens *token.Manager, store account.Store) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		store:   store,
	}
}

// RegisterRoutes mounts the admin API. sessionAuth guards token minting;
// everything else uses bearer tokens.
func (h *Handler) RegisterRoutes(r *gin.Engine, sessionAuth gin.HandlerFunc) {
	r.POST("/api/token", sessionAuth, h.mintToken)

	api := r.Group("/api")
	api.Use(middleware.RequireAdminToken(h.tokens, h.store))

	api.POST("/users", h.createUser)
	api.DELETE("/users/:id", h.deleteUser)
	api.PATCH("/users/:id/role", h.changeRole)

	api.GET("/admin/pending", h.listPending)
	api.POST("/admin/pending/:id/approve", h.approve)
	api.POST("/admin/pending/:id/reject", h.reject)
}

// mintToken exchanges an admin session for a bearer token.
func (h *Handler) mintToken(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	caller, err := h.store.ProfileByID(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}
	if caller == nil || !caller.Role.CanReview() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	raw, err := h.tokens.Issue(caller.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mint token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": raw})
}

func (h *Handler) listPending(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	requests, err := h.service.ListPending(c.Request.Context(), caller)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(requests))
	for _, r := range requests {
		out = append(out, gin.H{
			"id":             r.ID,
			"email":          r.Email,
			"display_name":   r.DisplayName,
			"requested_role": r.RequestedRole,
			"auth_provider":  r.AuthProvider,
			"requested_at":   r.RequestedAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"pending": out})
}

type approveRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) approve(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pre, err := h.service.Approve(
		c.Request.Context(),
		caller,
		c.Param("id"),
		account.Role(req.Role),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "approved",
		"email":       pre.Email,
		"role":        pre.RequestedRole,
		"approved_at": pre.ApprovedAt.UTC(),
	})
}

func (h *Handler) reject(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	if err := h.service.Reject(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

type createUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required"`
}

func (h *Handler) createUser(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.service.CreateProfile(
		c.Request.Context(),
		caller,
		req.Email,
		req.DisplayName,
		account.Role(req.Role),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    profile.ID,
		"email": profile.Email,
		"role":  profile.Role,
	})
}

func (h *Handler) deleteUser(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	if err := h.service.DeleteProfile(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) changeRole(c *gin.Context) {
	caller, _ := middleware.CallerFromGin(c)

	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.service.ChangeRole(
		c.Request.Context(),
		caller,
		c.Param("id"),
		account.Role(req.Role),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    profile.ID,
		"email": profile.Email,
		"role":  profile.Role,
	})
}

// writeError maps service errors onto HTTP statuses. Guard violations
// are surfaced verbatim, never downgraded.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInsufficientPrivilege):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrImmutableRole):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrLastSuperAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrProfileExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
