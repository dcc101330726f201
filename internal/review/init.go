package review

import (
	"github.com/gin-gonic/gin"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
)

// Initialize sets up the review module and registers its routes
func Initialize(api *gin.RouterGroup, service ReviewService, cfg *config.ReviewConfig) {
	handler := newReviewHandler(service, cfg.SessionHeader, cfg.SessionCookie, cfg.MaxUploadSize)
	registerRoutes(api, handler)
}

// registerRoutes registers all review routes
func registerRoutes(api *gin.RouterGroup, handler *reviewHandler) {
	review := api.Group("/representations/:reference/review")
	review.Use(handler.validatePathParams)

	review.GET("", handler.getTaskList)
	review.DELETE("", handler.abandonReview)
	review.POST("/submit", handler.submitReview)

	review.POST("/comment", handler.setCommentDecision)
	review.GET("/comment/redact", handler.getRedactionView)
	review.POST("/comment/redact", handler.saveRedactedComment)
	review.POST("/comment/redact/suggestions", handler.applySuggestions)
	review.POST("/comment/redact/accept", handler.acceptRedactedComment)

	review.POST("/documents/:itemId", handler.setDocumentDecision)
	review.POST("/documents/:itemId/uploads", handler.uploadRedactedDocument)
	review.DELETE("/documents/:itemId/uploads/:uploadId", handler.removeStagedUpload)
}
