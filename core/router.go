package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with routes wired. Authentication runs
// on every request; authorization is opt-in per route and only "/" demands it.
func NewRouter(cfg Config, auth Authenticator, users UserRepository, codec *TokenCodec, cache *PrincipalCache) *gin.Engine {
	r := gin.Default()

	r.Use(Authenticate(cfg, codec, cache))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var req struct {
				IdentityKey string `json:"identityKey"`
				Secret      string `json:"secret"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.IdentityKey) == "" || req.Secret == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "identityKey and secret are required")
				return
			}

			outcome, err := auth.Login(c.Request.Context(), req.IdentityKey, req.Secret)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login failed")
				return
			}

			switch outcome.Status {
			case LoginNotFound:
				respondError(c, http.StatusBadRequest, "USER_NOT_FOUND", "user_not_found")
			case LoginTwoFactorRequired:
				c.JSON(http.StatusOK, gin.H{"twoFactor": true, "pendingToken": outcome.PendingToken})
			case LoginRejected:
				respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid_credentials")
			case LoginSuccess:
				setSessionCookie(c, cfg, outcome.SessionToken)
				c.JSON(http.StatusOK, userInfoResponse(outcome.Principal))
			default:
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "unexpected login outcome")
			}
		})

		authGroup.POST("/2fa", func(c *gin.Context) {
			var req struct {
				PendingToken string `json:"pendingToken"`
				Code         string `json:"code"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if req.PendingToken == "" || req.Code == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "pendingToken and code are required")
				return
			}

			outcome, err := auth.CompleteTwoFactor(c.Request.Context(), req.PendingToken, req.Code)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "two-factor completion failed")
				return
			}

			if outcome.Status != LoginSuccess {
				respondError(c, http.StatusUnauthorized, "TWO_FACTOR_REJECTED", "two_factor_rejected")
				return
			}

			setSessionCookie(c, cfg, outcome.SessionToken)
			c.JSON(http.StatusOK, userInfoResponse(outcome.Principal))
		})

		authGroup.POST("/logout", func(c *gin.Context) {
			clearSessionCookie(c, cfg)
			c.Status(http.StatusNoContent)
		})
	}

	r.GET("/users/me", func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		u, err := users.FindByNormalizedEmail(c.Request.Context(), principal.Email)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "user lookup failed")
			return
		}
		if u == nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subjectId":       u.ID,
			"displayName":     u.Username,
			"normalizedEmail": NormalizeEmail(u.Email),
			"roles":           principal.Roles,
			"authCount":       u.AuthCount,
			"registered":      u.Registered,
		})
	})

	// Account overview for support staff. Gated at the handler level; the
	// HTTP-wide default stays permissive.
	r.GET("/admin/accounts/:identityKey", RequireRoles(RoleAdmin), func(c *gin.Context) {
		key := c.Param("identityKey")
		u, err := users.FindByNormalizedEmail(c.Request.Context(), key)
		if err == nil && u == nil {
			u, err = users.FindByHandle(c.Request.Context(), key)
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "account lookup failed")
			return
		}
		if u == nil {
			respondError(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no such account")
			return
		}

		p := BuildPrincipal(u)
		c.JSON(http.StatusOK, gin.H{
			"subjectId":        u.ID,
			"displayName":      u.Username,
			"normalizedEmail":  p.Email,
			"roles":            p.Roles,
			"staff":            p.IsStaff(),
			"twoFactorEnabled": u.TwoFactorEnabled,
			"authCount":        u.AuthCount,
			"lastActivity":     u.LastActivity,
			"registered":       u.Registered,
		})
	})

	// Only the root resource is marked authenticated; everything else is
	// permitted by default.
	r.GET("/", RequireAuth(), func(c *gin.Context) {
		principal, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"message": "welcome", "displayName": principal.Username})
	})

	return r
}
