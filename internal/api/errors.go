package api

import (
	"errors"
	"net/http"

	"ecofinds/internal/service"
	"ecofinds/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[service.Kind]int{
	service.KindValidation:      http.StatusBadRequest,
	service.KindUnauthenticated: http.StatusUnauthorized,
	service.KindForbidden:       http.StatusForbidden,
	service.KindNotFound:        http.StatusNotFound,
}

// respondError writes {"error": msg}. Errors that are not service errors
// become a generic 500 and are logged with the request id.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		if status, ok := statusByKind[se.Kind]; ok {
			c.JSON(status, gin.H{"error": se.Msg})
			return
		}
	}

	util.GetLogger().Error("Request failed",
		zap.String("request_id", c.GetString(ctxRequestID)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// bindJSON decodes the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
