package middleware

import (
	"errors"
	"net/http"
	"strings"

	"access-service/internal/account"
	"access-service/internal/token"

	"github.com/gin-gonic/gin"
)

const callerContextKey = "adminCaller"

// CallerFromGin returns the verified admin profile attached by
// RequireAdminToken.
func CallerFromGin(c *gin.Context) (*account.Profile, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*account.Profile)
	return p, ok
}

// RequireAdminToken authenticates the administrative API. It verifies
// the bearer token, loads the caller's live profile, and requires the
// admin or super_admin role. The role check always runs against the
// store, so a revoked admin is locked out as soon as the profile
// changes, not when the token expires.
func RequireAdminToken(tokens *token.Manager, store account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		subject, err := tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		caller, err := store.ProfileByID(c.Request.Context(), subject)
		if errors.Is(err, account.ErrStorageUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "storage unavailable",
			})
			return
		}
		if err != nil || caller == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unknown caller",
			})
			return
		}

		if !caller.Role.CanReview() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}
