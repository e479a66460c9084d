package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wellness-sessions/internal/app"
	"wellness-sessions/internal/pkg/logger"
	"wellness-sessions/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

// AuthJWT resolves the bearer token to a live user. Every credential failure
// gets the same 401 body; the cause is only logged at debug level.
func AuthJWT(verifier *app.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := verifier.Verify(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			if errors.Is(err, app.ErrUnauthenticated) {
				logger.FromContext(c.Request.Context()).Debug("authentication rejected", "reason", err.Error())
				response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
			} else {
				response.Internal(c, err, "authentication failed")
			}
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, who)
		c.Next()
	}
}

// IdentityFrom returns the identity installed by AuthJWT.
func IdentityFrom(c *gin.Context) (app.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return app.Identity{}, false
	}
	who, ok := v.(app.Identity)
	return who, ok && who.UserID != 0
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
