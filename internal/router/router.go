package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nearmi/localhunt-backend/config"
	"github.com/nearmi/localhunt-backend/internal/app/controller"
	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/metrics"
	"github.com/nearmi/localhunt-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	authController   *controller.AuthController
	vendorController *controller.VendorController
	reviewController *controller.ReviewController
	chatController   *controller.ChatController
	adminController  *controller.AdminController
	uploadController *controller.UploadController
	authMiddleware   *middleware.AuthMiddleware
	config           *config.Config
}

// NewRouter wires the HTTP surface. uploadController may be nil when no
// bucket is configured.
func NewRouter(
	authController *controller.AuthController,
	vendorController *controller.VendorController,
	reviewController *controller.ReviewController,
	chatController *controller.ChatController,
	adminController *controller.AdminController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:   authController,
		vendorController: vendorController,
		reviewController: reviewController,
		chatController:   chatController,
		adminController:  adminController,
		uploadController: uploadController,
		authMiddleware:   authMiddleware,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(metrics.Middleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "LocalHunt API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", authRequired, r.authController.Logout)
			auth.GET("/me", authRequired, r.authController.GetMe)
			auth.PUT("/me", authRequired, r.authController.UpdateMe)
		}

		vendors := v1.Group("/vendors")
		{
			vendors.GET("", r.vendorController.QueryVendors)
			vendors.GET("/me", authRequired, r.vendorController.ListMyVendors)
			vendors.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.vendorController.GetVendor)
			vendors.POST("", authRequired, r.vendorController.RegisterVendor)
			vendors.PATCH("/:id", authRequired, r.vendorController.UpdateVendor)
			vendors.PUT("/:id/images", authRequired, r.vendorController.UpdateVendorImages)
			vendors.GET("/:id/stats", authRequired, r.vendorController.GetVendorStats)

			vendors.GET("/:id/reviews", r.reviewController.ListVendorReviews)
			vendors.POST("/:id/reviews", authRequired, r.reviewController.CreateReview)
		}

		reviews := v1.Group("/reviews", authRequired)
		{
			reviews.GET("/me", r.reviewController.ListMyReviews)
			reviews.PUT("/:id", r.reviewController.UpdateReview)
			reviews.DELETE("/:id", r.reviewController.DeleteReview)
			reviews.POST("/:id/report", r.reviewController.ReportReview)
			reviews.POST("/:id/reply", r.reviewController.ReplyToReview)
		}

		chats := v1.Group("/chats", authRequired)
		{
			chats.GET("/ws", r.chatController.WebSocketHandler)
			chats.POST("/conversations", r.chatController.StartConversation)
			chats.GET("/conversations", r.chatController.ListConversations)
			chats.GET("/conversations/:id", r.chatController.GetConversation)
			chats.GET("/conversations/:id/messages", r.chatController.ListMessages)
			chats.POST("/conversations/:id/messages", r.chatController.SendMessage)
			chats.POST("/conversations/:id/read", r.chatController.MarkRead)
			chats.POST("/conversations/:id/join", r.chatController.JoinConversation)
			chats.POST("/conversations/:id/leave", r.chatController.LeaveConversation)
		}

		admin := v1.Group("/admin", authRequired, adminOnly)
		{
			admin.PATCH("/vendors/:id/status", r.adminController.UpdateVendorStatus)
			admin.PATCH("/vendors/:id/verify", r.adminController.VerifyVendor)
			admin.POST("/vendors/:id/recompute-rating", r.adminController.RecomputeVendorRating)
			admin.POST("/vendors/import", r.adminController.ImportVendors)
			admin.POST("/ratings/recompute", r.adminController.RecomputeAllRatings)
			admin.GET("/reviews/flagged", r.adminController.ListFlaggedReviews)
			admin.PATCH("/reviews/:id/status", r.adminController.UpdateReviewStatus)
		}

		if r.uploadController != nil {
			v1.POST("/upload/presigned-url", authRequired, r.uploadController.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
