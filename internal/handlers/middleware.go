package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorKey holds the authenticated operator id in the gin context.
const operatorKey = "operatorId"

const (
	errMissingAuth  = "missing Authorization header"
	errAuthFormat   = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

// authMiddleware guards mutating routes. With auth disabled every request passes.
func (h *Handler) authMiddleware(c *gin.Context) {
	if !h.authEnabled {
		c.Next()
		return
	}
	h.requireOperator(c)
}

func (h *Handler) requireOperator(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidToken})
		return
	}
	c.Set(operatorKey, id)
	c.Next()
}

// bearerToken extracts the token, or returns the error message for a bad header.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", errMissingAuth
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return "", errAuthFormat
	}
	return strings.TrimSpace(token), ""
}
