// Package handlers is the master controller's HTTP surface: it accepts
// alarm frames from sensor nodes and lists what it has received.
package handlers

import (
	"net/http"

	"sensor_node/internal/logger"
	"sensor_node/internal/service"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// nodes push alarm frames over this socket
	router.GET("/ws", h.deviceTokenMiddleware, h.wsIngest)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.deviceTokenMiddleware)
	{
		api.GET("/alarms", h.listAlarms)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// listAlarms returns received frames in arrival order. ?serial= narrows
// the list to one node.
func (h *Handler) listAlarms(c *gin.Context) {
	frames := h.services.Alarms.List(c.Query("serial"))
	c.JSON(http.StatusOK, gin.H{
		"count":  len(frames),
		"alarms": frames,
	})
}
