package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/zeloura/api/internal/container"
	"github.com/zeloura/api/internal/handlers"
	"github.com/zeloura/api/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "zeloura-api",
			})
		})

		// public routes
		v1.POST("/signup", handlers.CreateUser(container.UserService))
		v1.POST("/login", handlers.AuthenticateUser(container.UserService))
		v1.POST("/refresh", handlers.RefreshSession(container.UserService))
		v1.POST("/logout", handlers.Logout())

		// catalog browsing and approved reviews need no session
		v1.GET("/products", handlers.ListProducts(container.ProductService))
		v1.GET("/products/search", handlers.SearchProducts(container.ProductService))
		v1.GET("/products/:id", handlers.GetProductByID(container.ProductService))
		v1.GET("/products/:id/reviews", handlers.ListProductReviews(container.ReviewService))
		v1.GET("/products/:id/reviews/summary", handlers.ProductReviewSummary(container.ReviewService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.UserService, container.Logger))

	reviewRoutes := protected.Group("/reviews")
	{
		// One submission every 30s per client, short burst allowance.
		reviewRoutes.POST("/", middleware.RateLimit(rate.Limit(1.0/30.0), 3),
			handlers.SubmitReview(container.ReviewService, container.Cloudinary))
		reviewRoutes.POST("/:id/helpful", handlers.MarkReviewHelpful(container.ReviewService))
		reviewRoutes.POST("/:id/report", handlers.ReportReview(container.ReviewService))
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(container.ModerationService, container.Logger))
	{
		admin.GET("/reviews", handlers.ModerationQueue(container.ModerationService))
		admin.GET("/reviews/stats", handlers.ReviewStats(container.ModerationService))
		admin.POST("/reviews/:id/moderate", handlers.ModerateReview(container.ModerationService))
		admin.POST("/reviews/:id/reply", handlers.ReplyToReview(container.ModerationService))

		admin.POST("/products", handlers.CreateProduct(container.ProductService))
		admin.PATCH("/products/:id", handlers.UpdateProduct(container.ProductService))
		admin.DELETE("/products/:id", handlers.DeleteProduct(container.ProductService))
	}

	return r
}
