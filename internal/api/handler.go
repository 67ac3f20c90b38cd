package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	svc      *service.Services
	deps     map[string]Pinger
	journal  AttemptLister
	resolver OrderResolver
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.Services) *Handler {
	return &Handler{
		svc:    svc,
		deps:   make(map[string]Pinger),
		logger: util.Component("api"),
	}
}

// WithDependency adds a dependency to the readiness check
func (h *Handler) WithDependency(name string, p Pinger) *Handler {
	h.deps[name] = p
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/signin", h.signIn)
		v1.POST("/auth/signup", h.signUp)
		v1.POST("/auth/signout", h.signOut)
		v1.POST("/bootstrap", h.bootstrap)

		v1.GET("/cart", h.getCart)
		v1.GET("/cart/totals", h.cartTotals)
		v1.POST("/cart/items", h.addToCart)
		v1.PUT("/cart/items/:productId", h.updateCartItem)
		v1.DELETE("/cart/items/:productId", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/products", h.createProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.GET("/products/:id/reviews", h.listReviews)
		v1.POST("/products/:id/reviews", h.createReview)
		v1.DELETE("/reviews/:id", h.deleteReview)

		v1.GET("/orders", h.myOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.GET("/admin/orders", h.allOrders)
		v1.PUT("/admin/orders/:id/status", h.updateOrderStatus)

		v1.POST("/checkout", h.placeOrder)
		v1.GET("/checkout/status", h.checkoutStatus)
		v1.GET("/checkout/attempts", h.checkoutAttempts)
		v1.GET("/checkout/attempts/:key", h.checkoutAttempt)

		v1.GET("/profile", h.getProfile)
		v1.PUT("/profile", h.updateProfile)
		v1.POST("/profile/addresses", h.addAddress)
		v1.PUT("/profile/addresses/:index", h.updateAddress)
		v1.DELETE("/profile/addresses/:index", h.deleteAddress)

		v1.POST("/contact", h.sendContact)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError maps a service error to a status code and body
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	body := gin.H{"error": err.Error(), "kind": service.KindOf(err).String()}

	switch service.KindOf(err) {
	case service.KindValidation:
		status = http.StatusBadRequest
		switch {
		case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotReviewOwner):
			status = http.StatusForbidden
		case errors.Is(err, service.ErrCheckoutInProgress):
			status = http.StatusConflict
		case errors.Is(err, service.ErrReviewNotFound):
			status = http.StatusNotFound
		}
	case service.KindAuth:
		status = http.StatusUnauthorized
	case service.KindPartial:
		var partial *service.PartialFailure
		errors.As(err, &partial)
		status = http.StatusMultiStatus
		body["warning"] = err.Error()
		body["stage"] = partial.Stage
		body["order"] = partial.Order
	case service.KindNetwork:
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, gateway.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, cache.ErrSuperseded):
			status = http.StatusConflict
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
