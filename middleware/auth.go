package middleware

import (
	"net/http"
	"strings"

	"blogapi/token"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the caller's token.Identity.
const IdentityKey = "identity"

type TokenVerifier interface {
	Verify(raw string) (token.Identity, error)
}

// Auth rejects requests without a valid bearer token. The token may also be
// passed as ?token= for clients that cannot set headers.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		id, err := verifier.Verify(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(IdentityKey, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		q := c.Query("token")
		return q, q != ""
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c *gin.Context) (token.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return token.Identity{}, false
	}
	id, ok := v.(token.Identity)
	return id, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
