package middleware

import (
	"net/http"

	"microgrid-planner/internal/api/models"
	"microgrid-planner/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler middleware recovers panics into an INTERNAL_ERROR response
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	log := logging.OrNop(logger)
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("handler panic",
			zap.String("path", c.Request.URL.Path),
			zap.Any("recovered", recovered))
		message := "An unexpected error occurred"
		if err, ok := recovered.(string); ok {
			message = err
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: message,
			},
		})
	})
}
