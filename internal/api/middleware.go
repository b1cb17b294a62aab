package api

import (
	"strings"
	"time"

	"ecofinds/internal/service"
	"ecofinds/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ctxRequestID = "request_id"
	ctxPrincipal = "principal"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		util.GetLogger().Info("HTTP request",
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// bearerToken returns the Authorization bearer token, falling back to the
// session cookie when the header is absent.
func (h *Handler) bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		if token := strings.TrimSpace(header[7:]); token != "" {
			return token
		}
	}
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		return token
	}
	return ""
}

// requireAuth resolves the caller and aborts with 401 before the handler
// runs when that fails.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := h.svc.Auth.Resolve(c.Request.Context(), h.bearerToken(c))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxPrincipal, principal)
		c.Next()
	}
}

func principal(c *gin.Context) *service.Principal {
	return c.MustGet(ctxPrincipal).(*service.Principal)
}

func userID(c *gin.Context) int64 {
	return principal(c).User.ID
}
