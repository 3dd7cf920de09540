package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const unknownClientIP = "unknown"

// clientIP returns the first hop of X-Forwarded-For, then X-Real-IP, then
// the transport peer. Headers are taken at face value: the address only keys
// the vote ledger and the upload limiter.
func clientIP(request *http.Request) string {
	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(request.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if remote := strings.TrimSpace(request.RemoteAddr); remote != "" {
		if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
			return host
		}
		return remote
	}
	return unknownClientIP
}

func resolveClientIP(c *gin.Context) {
	c.Set(clientIPContextKey, clientIP(c.Request))
	c.Next()
}

func requestClientIP(c *gin.Context) string {
	if value := c.GetString(clientIPContextKey); value != "" {
		return value
	}
	return clientIP(c.Request)
}
