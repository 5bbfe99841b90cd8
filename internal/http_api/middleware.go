package http_api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the operator API token.
const AdminTokenHeader = "X-Admin-Token"

func (s *HTTPServer) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin API is disabled"})
			return
		}
		token := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.logger.Warnw("Rejected admin request", "path", c.FullPath(), "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid admin token"})
			return
		}
		c.Next()
	}
}
