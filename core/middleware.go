package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// contextUserID is the gin context key carrying the authenticated user id.
const contextUserID = "user_id"

// RequireAuth extracts and verifies the bearer token, then binds the user id
// into the request context. Every owned-resource route runs behind this gate.
func RequireAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set(contextUserID, userID)
		c.Next()
	}
}

// CurrentUserID returns the identity bound by RequireAuth.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(contextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CORSMiddleware validates the Origin against the allowed list and answers
// preflights. With no configured origins every origin is reflected, matching
// the permissive default the frontend dev server relies on. Auth is carried
// in the Authorization header, not cookies, so credentials are never allowed.
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is allowed.
			return true
		}
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "Origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "Origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}
