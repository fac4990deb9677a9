package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuth denies unauthenticated access to routes explicitly marked as
// requiring authentication. All unmarked routes are permitted by default;
// that permissive policy matches the deployed behaviour and must not be
// tightened silently.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			denyAnonymous(c)
			return
		}
		c.Next()
	}
}

// RequireRoles gates a route on the principal carrying every listed role.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			denyAnonymous(c)
			return
		}
		if !principal.HasAllRoles(roles...) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}

// denyAnonymous rejects a request that reached a gated route without a
// principal. A store fault during resolution is a server failure, not an
// authentication one, and is reported as such here rather than globally.
func denyAnonymous(c *gin.Context) {
	if principalFaulted(c) {
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "principal resolution failed")
	} else {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	}
	c.Abort()
}
