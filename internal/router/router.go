package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/review"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/constants"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// SetupRouter configures all API routes
func SetupRouter(
	reviewService review.ReviewService,
	cfg *config.Config,
	checks map[string]HealthCheck,
	logger logrus.FieldLogger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(middleware.CORSOptions{
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{constants.HeaderContentType, constants.CorrelationIDHeaderName, cfg.Review.SessionHeader},
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
	}))
	router.Use(middleware.CorrelationIDMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WithError(err).WithField("component", name).Warn("Health check failed")
				components[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "healthy"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{"status": overall, "components": components})
	})

	// API v1 routes
	v1 := router.Group(constants.APIBasePath)
	review.Initialize(v1, reviewService, &cfg.Review)

	return router
}
