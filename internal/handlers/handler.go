package handlers

import (
	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, metrics and logging.
type Handler struct {
	services *service.Service
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. m may be nil.
func NewHandler(services *service.Service, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: m, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.metrics.Middleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Status stream on the same port; token via header or ?access_token=
	router.GET("/ws", h.userIdMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerShieldRoutes(api)
		h.registerActuatorRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerShieldRoutes(api *gin.RouterGroup) {
	shield := api.Group("/shield")
	{
		shield.GET("/status", h.getStatus)
		// Body example: {"pm25": 12.5, "indoor_humidity": 58, "occupancy": true}
		shield.POST("/state", h.updateState)
		shield.POST("/evaluate", h.evaluate)
		shield.POST("/dust-kicker", h.triggerDustKicker)
	}
}

func (h *Handler) registerActuatorRoutes(api *gin.RouterGroup) {
	act := api.Group("/actuators")
	{
		act.POST("/purifier/speed", h.setPurifierSpeed)
		act.POST("/purifier/led", h.setPurifierLED)
		act.POST("/thermostat/fan", h.setFanMode)
		act.POST("/relay", h.setRelay)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/", h.getLogs)
	}
}
