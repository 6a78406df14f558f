package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/01moynul/storefront-golang/internal/config"
	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/middleware"
)

func init() {
	// Request bodies must match the input structs exactly.
	binding.EnableDecoderDisallowUnknownFields = true
}

// CORSMiddleware allows the deployed storefront and local development
// origins, with credentials.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// jsonRecovery answers a panic with the same JSON body as every other failure.
func jsonRecovery(c *gin.Context, recovered any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}

func SetupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(jsonRecovery))
	router.HandleMethodNotAllowed = true

	// CORS runs ahead of every route, including the 404/405 handlers.
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method not allowed"})
	})

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend is running successfully.")
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// --- Auth Routes (Public) ---
	router.POST("/signup", h.Signup)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.POST("/refresh", h.Refresh)

	// --- Protected Routes (Login Required) ---
	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(h.Tokens))
	{
		protected.GET("/users", h.GetUsers)
		protected.PUT("/profile", h.UpdateProfile)
		protected.PUT("/update-profile", h.UpdateProfile)

		cart := protected.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("/add", h.AddToCart)
			cart.PUT("/items/:id", h.UpdateCartItem)
			cart.DELETE("/remove/:id", h.RemoveCartItem)
			cart.DELETE("/clear", h.ClearCart)
		}

		orders := protected.Group("/orders")
		{
			orders.GET("", h.GetMyOrders)
			orders.POST("/place", h.PlaceOrder)
			orders.GET("/:id", h.GetOrderDetails)
		}
	}

	return router
}
