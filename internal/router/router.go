package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/middleware"
)

type Handler interface {
	GetAvailability(c *gin.Context)
	GetNextAvailable(c *gin.Context)
	CreateBooking(c *gin.Context)
	GetBooking(c *gin.Context)
	RescheduleBooking(c *gin.Context)
	Transition(action booking.Action) gin.HandlerFunc
	RecordPayment(c *gin.Context)
	Refund(c *gin.Context)
}

// transitionRoutes — PATCH /bookings/:id/<path> для действий машины состояний.
var transitionRoutes = []struct {
	path   string
	action booking.Action
}{
	{"confirm", booking.ActionConfirm},
	{"check-in", booking.ActionCheckIn},
	{"start", booking.ActionStart},
	{"complete", booking.ActionComplete},
	{"cancel", booking.ActionCancel},
	{"no-show", booking.ActionNoShow},
}

func InitRouter(mode string, log *slog.Logger, h Handler) *gin.Engine {
	gin.SetMode(mode)
	router := gin.New()
	router.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.MerchantScope())
	{
		// Availability
		api.GET("/availability", h.GetAvailability)
		api.GET("/availability/next", h.GetNextAvailable)

		// Bookings
		api.POST("/bookings", h.CreateBooking)
		api.GET("/bookings/:id", h.GetBooking)
		api.PATCH("/bookings/:id", h.RescheduleBooking)
		for _, r := range transitionRoutes {
			api.PATCH("/bookings/:id/"+r.path, h.Transition(r.action))
		}

		// Payments
		api.POST("/bookings/:id/payments", h.RecordPayment)
		api.POST("/bookings/:id/refunds", h.Refund)
	}

	return router
}
