package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID       = "userId"
	tokenQueryParam = "access_token"

	errMissingAuth = "missing Authorization header"
	errBadAuth     = "invalid Authorization header format"
	errBadToken    = "invalid or expired token"
)

// bearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on a websocket upgrade, so GET requests may pass it as
// ?access_token= instead. The returned message is empty on success.
func bearerToken(c *gin.Context) (token, errMsg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if c.Request.Method == http.MethodGet {
			if q := c.Query(tokenQueryParam); q != "" {
				return q, ""
			}
		}
		return "", errMissingAuth
	}
	scheme, tok, ok := strings.Cut(header, " ")
	tok = strings.TrimSpace(tok)
	if !ok || !strings.EqualFold(scheme, "Bearer") || tok == "" {
		return "", errBadAuth
	}
	return tok, ""
}

// userIdMiddleware authenticates the request and stores the operator ID
// under ctxUserID.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}
