// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/result-analyser-api/internal/handlers"
	"github.com/Shimizu-Technology/result-analyser-api/internal/middleware"
)

// Limiters are the rate limiters applied to each route group.
// Public limits anonymous auth traffic by client IP; User limits
// authenticated traffic by user ID.
type Limiters struct {
	Public *middleware.RateLimiter
	User   *middleware.RateLimiter
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, allowedOrigins []string, limiters Limiters) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.Metrics(h.Metrics))

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	// API Documentation
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	// --- Auth Routes: public, limited per client IP ---
	auth := r.Group("/api/v1/auth")
	auth.Use(limiters.Public.RateLimit())
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}

	// --- JWT-protected routes ---
	// Go Pattern: JWTAuth runs before RateLimit so the limiter can key
	// requests by user instead of IP.
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(h.DB, h.JWTSecret))
	protected.Use(limiters.User.RateLimit())
	{
		protected.GET("/auth/me", h.GetMe)
		protected.POST("/auth/refresh", h.RefreshToken)

		// Stored analyses. "latest" is accepted wherever :id is.
		protected.POST("/analyses", h.CreateAnalysis)
		protected.GET("/analyses", h.ListAnalyses)
		protected.DELETE("/analyses", h.ClearAnalyses)
		protected.GET("/analyses/:id", h.GetAnalysis)
		protected.GET("/analyses/:id/download", h.DownloadAnalysis)
		protected.DELETE("/analyses/:id", h.DeleteAnalysis)

		// Stateless analysis, nothing stored
		protected.POST("/results/extract", h.ExtractResults)
		protected.POST("/results/stats", h.ComputeStats)
	}

	return r
}
