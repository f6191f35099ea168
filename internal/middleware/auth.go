package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ttys3/gitea-sso/internal/session"
)

// ContextUserID is the gin context key the authenticated user id is
// stored under.
const ContextUserID = "userID"

type AuthMiddleware struct {
	Store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

// RequireAuth rejects requests without a valid, unexpired session and
// attaches the user id to the gin context for downstream handlers.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sess, err := a.Store.Get(c.Request.Context(), cookie.Value)
		if err != nil || sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// The Redis TTL usually expires the key first; this check
		// covers stores without native expiry.
		if time.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(c.Request.Context(), sess.SessionID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextUserID, sess.UserID)
		c.Next()
	}
}
