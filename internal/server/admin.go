package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requireAdmin compares the shared secret header in constant time.
func (h *httpHandler) requireAdmin(c *gin.Context) {
	supplied := []byte(strings.TrimSpace(c.GetHeader(adminPasswordHeader)))
	if len(supplied) == 0 || subtle.ConstantTimeCompare(supplied, h.adminPassword) != 1 {
		h.logger.Warn("admin authorization failed",
			zap.String("ip", requestClientIP(c)),
			zap.String("route", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
