package handlers

import (
	"net/http"

	"pimonitor/internal/logger"
	"pimonitor/internal/service"
	"pimonitor/internal/view"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	media       http.Handler
	authEnabled bool

	// expansion is shared by every viewer: one open access log entry per daemon.
	expansion view.Expansion
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMediaProxy serves the stream, snapshot and access log images through p.
func WithMediaProxy(p http.Handler) Option {
	return func(h *Handler) { h.media = p }
}

// WithAuth makes the mutating API routes require a bearer token.
func WithAuth(enabled bool) Option {
	return func(h *Handler) { h.authEnabled = enabled }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{services: services, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(view.Templates())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	// Dashboard page and its live channel
	router.GET("/", h.index)
	router.GET("/ws", h.wsConnect)

	h.registerMediaRoutes(router)
	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerMediaRoutes(r *gin.Engine) {
	r.GET("/video_feed", h.proxyMedia)
	r.GET("/snapshot", h.proxyMedia)
	r.GET("/access-logs/:id/image", h.proxyMedia)
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/state", h.getState)
		// expansion is per-daemon view state, not a backend mutation
		api.POST("/access-logs/:id/expand", h.expandAccessLog)
		h.registerLogRoutes(api)
	}

	protected := api.Group("", h.authMiddleware)
	{
		h.registerDashboardRoutes(protected)
	}
}

func (h *Handler) registerDashboardRoutes(api *gin.RouterGroup) {
	api.POST("/reading/refresh", h.refreshReading)
	api.POST("/detection/:key/toggle", h.toggleDetection)
	api.POST("/stream/toggle", h.toggleStream)

	logs := api.Group("/access-logs")
	{
		logs.POST("/refresh", h.refreshAccessLogs)
		logs.DELETE("", h.clearAccessLogs)
		logs.DELETE("/:id", h.deleteAccessLog)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	api.GET("/readings", h.getReadings)
	api.GET("/activity", h.getActivity)
}
