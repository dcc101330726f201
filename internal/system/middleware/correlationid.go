package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/constants"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/utils"
)

func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := extractCorrelationID(c)
		if correlationID == "" {
			correlationID = utils.NewID()
		}
		c.Set(constants.CorrelationIDKey, correlationID)
		c.Header(constants.CorrelationIDHeaderName, correlationID)
		c.Next()
	}
}

func extractCorrelationID(c *gin.Context) string {
	headers := []string{constants.CorrelationIDHeaderName, "X-Request-ID", "X-Trace-ID"}
	for _, header := range headers {
		if id := c.GetHeader(header); id != "" {
			return id
		}
	}
	return ""
}
