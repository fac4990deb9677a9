package core

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	principalContextKey    = "auth.principal"
	principalErrContextKey = "auth.principal_error"
)

// Authenticate extracts the session token from the configured cookie on
// every request, validates it, and resolves the principal through the cache.
// A missing or invalid cookie leaves the request anonymous; gated routes
// reject it later. Roles are re-resolved per request via the cache rather
// than trusted from the token, so role changes apply immediately.
// A principal-store fault also leaves the request anonymous; the fault is
// recorded on the context and only surfaces on routes that demand a
// principal, so anonymous-permitted routes stay up when the store is down.
func Authenticate(cfg Config, codec *TokenCodec, cache *PrincipalCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cfg.CookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		claims, err := codec.ValidateSession(raw)
		if err != nil {
			c.Next()
			return
		}

		principal, err := cache.Get(c.Request.Context(), claims.Subject)
		if err != nil {
			if !errors.Is(err, ErrAccountNotFound) {
				c.Set(principalErrContextKey, err)
			}
			c.Next()
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal for the request, if any.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return Principal{}, false
	}
	principal, ok := value.(Principal)
	return principal, ok
}

// principalFaulted reports whether principal resolution failed on a store
// error rather than the request simply being anonymous.
func principalFaulted(c *gin.Context) bool {
	_, faulted := c.Get(principalErrContextKey)
	return faulted
}

// setSessionCookie writes the session token with the fixed cookie contract.
func setSessionCookie(c *gin.Context, cfg Config, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		MaxAge:   cfg.SessionMaxAgeSec,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSiteFromString(cfg.CookieSameSite),
	})
}

// clearSessionCookie expires the cookie. The token itself stays valid until
// its expiry; there is no server-side revocation.
func clearSessionCookie(c *gin.Context, cfg Config) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     cfg.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSiteFromString(cfg.CookieSameSite),
	})
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}
