package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tokenarena/internal/auth"
)

const identityKey = "tokenarena.identity"

// RequireSession rejects requests without a valid Bearer session token and
// stashes the verified identity on the gin context.
func RequireSession(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			Fail(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			c.Abort()
			return
		}
		identity, err := sessions.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			Fail(c, http.StatusUnauthorized, "unauthorized", "invalid session token")
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// OptionalSession parses a Bearer token when present but lets anonymous
// requests through. Read endpoints use it to personalize responses.
func OptionalSession(sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(header, "Bearer ") {
			if identity, err := sessions.Verify(strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*auth.Identity)
	return identity
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
