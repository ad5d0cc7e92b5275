package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"putik-service/internal/models"
	"putik-service/internal/service"
	"putik-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the application services the handlers call
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Bookings *service.BookingService
	Leaves   *service.LeaveService
	Admin    *service.AdminService
}

// Handler contains HTTP handlers
type Handler struct {
	svc      Services
	verifier TokenVerifier
	profiles ProfileLoader
	checks   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, verifier TokenVerifier, profiles ProfileLoader, checks map[string]Pinger) *Handler {
	return &Handler{
		svc:      svc,
		verifier: verifier,
		profiles: profiles,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(requestID())
	router.Use(recovery(h.logger))
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/vehicles", h.listVehicles)
		v1.GET("/vehicles/:id", h.getVehicle)
		v1.GET("/vehicles/:id/parts", optionalAuth(h.verifier, h.profiles), h.listParts)
		v1.GET("/types", h.listTypes)
		v1.GET("/mechanics", h.listMechanics)
	}

	customer := v1.Group("", requireAuth(h.verifier, h.profiles))
	{
		customer.GET("/cart", h.getCart)
		customer.DELETE("/cart", h.clearCart)
		customer.PUT("/cart/vehicle", h.selectVehicle)
		customer.POST("/cart/items", h.addCartItem)
		customer.PUT("/cart/items/:part_id", h.updateCartItem)

		customer.GET("/checkout", h.getCheckout)
		customer.DELETE("/checkout", h.cancelCheckout)
		customer.POST("/checkout/date", h.selectDate)
		customer.GET("/checkout/mechanics", h.checkoutMechanics)
		customer.POST("/checkout/mechanic", h.selectMechanic)
		customer.POST("/checkout/confirm", h.confirmCheckout)

		customer.GET("/bookings", h.listOwnBookings)
		customer.GET("/bookings/:group_id", h.getBooking)
		customer.POST("/bookings/:group_id/edit", h.editBooking)
		customer.POST("/bookings/:group_id/cancel", h.cancelBooking)
	}

	mechanic := v1.Group("/mechanic", requireAuth(h.verifier, h.profiles), requireRole(models.RoleMechanic))
	{
		mechanic.GET("/bookings", h.listMechanicBookings)
		mechanic.POST("/bookings/:group_id/:action", h.transitionBooking)
		mechanic.GET("/leaves", h.listOwnLeaves)
		mechanic.POST("/leaves", h.addOwnLeave)
		mechanic.DELETE("/leaves/:leave_id", h.deleteOwnLeave)
	}

	admin := v1.Group("/admin", requireAuth(h.verifier, h.profiles), requireRole(models.RoleAdmin))
	{
		admin.POST("/vehicles", h.createVehicle)
		admin.PUT("/vehicles/:id", h.updateVehicle)
		admin.DELETE("/vehicles/:id", h.deleteVehicle)

		admin.POST("/types", h.createType)
		admin.PUT("/types/:id", h.updateType)
		admin.DELETE("/types/:id", h.deleteType)

		admin.POST("/parts", h.createPart)
		admin.PUT("/parts/:id", h.updatePart)
		admin.DELETE("/parts/:id", h.deletePart)

		admin.POST("/mechanics", h.createMechanic)
		admin.PUT("/mechanics/:id", h.updateMechanic)
		admin.DELETE("/mechanics/:id", h.deleteMechanic)
		admin.GET("/mechanics/:id/leaves", h.listMechanicLeaves)
		admin.POST("/mechanics/:id/leaves", h.addMechanicLeave)
		admin.DELETE("/mechanics/:id/leaves/:leave_id", h.deleteMechanicLeave)

		admin.GET("/bookings", h.listAllBookings)
		admin.GET("/bookings/:group_id", h.getBooking)
		admin.POST("/bookings/:group_id/:action", h.transitionBooking)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return id, true
}

func statusQuery(c *gin.Context) (*models.BookingStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status, err := models.ParseBookingStatus(raw)
	if err != nil {
		badRequest(c, "Invalid status filter", err)
		return nil, false
	}
	return &status, true
}
