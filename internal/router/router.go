package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	analyticsController *controller.AnalyticsController
	orderController     *controller.OrderController
	purchaseController  *controller.PurchaseController
	streamController    *controller.StreamController
	authMiddleware      *middleware.AuthMiddleware
	gatherer            prometheus.Gatherer
	config              *config.Config
}

func NewRouter(
	analyticsController *controller.AnalyticsController,
	orderController *controller.OrderController,
	purchaseController *controller.PurchaseController,
	streamController *controller.StreamController,
	authMiddleware *middleware.AuthMiddleware,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		analyticsController: analyticsController,
		orderController:     orderController,
		purchaseController:  purchaseController,
		streamController:    streamController,
		authMiddleware:      authMiddleware,
		gatherer:            gatherer,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Storefront analytics API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	admin := []gin.HandlerFunc{
		r.authMiddleware.Authenticate(),
		r.authMiddleware.RequireRole(model.RoleAdmin),
	}

	v1 := router.Group("/api/v1")
	{
		analytics := v1.Group("/analytics")
		analytics.Use(admin...)
		{
			analytics.POST("/sync", r.analyticsController.Sync)
			analytics.POST("/verify", r.analyticsController.Verify)
			analytics.GET("/simple-analysis", r.analyticsController.SimpleAnalysis)
			analytics.GET("/simple-analysis/export", r.analyticsController.ExportSimpleAnalysis)
			analytics.GET("/fact-sales", r.analyticsController.ListFactSales)
			analytics.GET("/most-sold", r.analyticsController.MostSoldProducts)
			analytics.GET("/orders-by-status", r.analyticsController.OrdersByStatus)
			analytics.GET("/top-users", r.analyticsController.TopUsers)
			analytics.GET("/top-suppliers", r.analyticsController.TopSuppliers)
			analytics.GET("/stream", r.streamController.Connect)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("/:id", r.orderController.GetOrder)

			orders.GET("",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.ListOrders,
			)
			orders.POST("",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.CreateOrder,
			)
			orders.PUT("/:id/status",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.UpdateOrderStatus,
			)
			orders.POST("/:id/items",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.AddOrderItem,
			)
			orders.PUT("/:id/items/:item_id",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.UpdateOrderItem,
			)
			orders.DELETE("/:id/items/:item_id",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.orderController.RemoveOrderItem,
			)
		}

		invoices := v1.Group("/purchase-invoices")
		invoices.Use(admin...)
		{
			invoices.POST("", r.purchaseController.CreateInvoice)
			invoices.GET("/:id", r.purchaseController.GetInvoice)
			invoices.POST("/:id/receive", r.purchaseController.ReceiveInvoice)
		}

		v1.GET("/variants/:id/stock", r.authMiddleware.Authenticate(), r.purchaseController.GetVariantStock)
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
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
