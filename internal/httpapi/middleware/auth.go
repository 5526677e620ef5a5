package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/auth"
	"github.com/janawaaz/civichub/internal/common"
)

const UserIDKey = "user_id"

// OptionalAuth identifies the caller from a bearer token. No Authorization
// header means an anonymous caller; a header that does not verify is
// rejected.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if h == "" {
			c.Next()
			return
		}
		const prefix = "Bearer "
		if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
			common.Fail(c, http.StatusUnauthorized, 40101, "invalid authorization header")
			return
		}
		uid, err := auth.ParseUserID(secret, strings.TrimSpace(h[len(prefix):]))
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "invalid token")
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}
