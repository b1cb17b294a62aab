package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ecofinds/internal/service"
	"ecofinds/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the business services the handlers call.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Listings      *service.ListingService
	Cart          *service.CartService
	Checkout      *service.CheckoutService
	Orders        *service.OrderService
	Notifications *service.NotificationService
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	cookie CookieConfig
	deps   map[string]Pinger
}

func NewHandler(svc Services, cookie CookieConfig, deps map[string]Pinger) *Handler {
	return &Handler{
		svc:    svc,
		cookie: cookie,
		deps:   deps,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	binding.EnableDecoderDisallowUnknownFields = true

	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	authed := api.Group("")
	authed.Use(h.requireAuth())

	api.POST("/auth/signup", h.signup)
	api.POST("/auth/login", h.login)
	authed.POST("/auth/logout", h.logout)
	authed.GET("/auth/me", h.me)

	api.GET("/categories", h.listCategories)

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	authed.POST("/products", h.createProduct)
	authed.PUT("/products/:id", h.updateProduct)
	authed.DELETE("/products/:id", h.deleteProduct)
	authed.GET("/my-listings", h.myListings)

	authed.GET("/cart", h.getCart)
	authed.POST("/cart", h.addToCart)
	authed.PUT("/cart/:id", h.updateCartItem)
	authed.DELETE("/cart/:id", h.removeCartItem)

	authed.GET("/orders", h.listOrders)
	authed.POST("/orders", h.checkout)
	authed.GET("/orders/:id", h.getOrder)
	authed.PUT("/orders/:id/status", h.updateOrderStatus)

	authed.GET("/user/profile", h.getProfile)
	authed.PUT("/user/profile", h.updateProfile)

	authed.GET("/notifications", h.listNotifications)
	authed.PUT("/notifications/:id/read", h.markNotificationRead)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency and reports 503 if any is down.
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
