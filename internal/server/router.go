package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wedding-rsvp/backend/internal/metrics"
	"github.com/wedding-rsvp/backend/internal/photos"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
)

const (
	warningHeader       = "X-RSVP-Warning"
	adminPasswordHeader = "X-Admin-Password"
	clientIPContextKey  = "wedding_client_ip"
)

var (
	errMissingRSVPService  = errors.New("rsvp service dependency required")
	errMissingPhotoService = errors.New("photo service dependency required")
	errMissingAdminSecret  = errors.New("admin password dependency required")
)

// Dependencies wires the HTTP handler.
type Dependencies struct {
	RSVPService    *rsvp.Service
	PhotoService   *photos.Service
	AdminPassword  string
	AllowedOrigins []string
	Metrics        *metrics.Collectors
	// Gatherer backs /metrics; the endpoint is omitted when nil.
	Gatherer prometheus.Gatherer
	// Realtime receives RSVP changes for /api/admin/events; a private
	// dispatcher is created when nil.
	Realtime *RealtimeDispatcher
	Logger   *zap.Logger
}

// NewHTTPHandler builds the gin router for the RSVP API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.RSVPService == nil {
		return nil, errMissingRSVPService
	}
	if deps.PhotoService == nil {
		return nil, errMissingPhotoService
	}
	if deps.AdminPassword == "" {
		return nil, errMissingAdminSecret
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(requestMetrics(deps.Metrics))
	router.Use(resolveClientIP)

	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	handler := &httpHandler{
		rsvpService:     deps.RSVPService,
		photoService:    deps.PhotoService,
		adminPassword:   []byte(deps.AdminPassword),
		realtime:        realtime,
		heartbeatPeriod: realtimeHeartbeatPeriod,
		logger:          logger,
	}

	router.GET("/", handler.handleRoot)
	router.GET("/healthz", handler.handleHealth)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	router.Static(photos.OriginalsRoute, deps.PhotoService.OriginalsDir())

	api := router.Group("/api")
	api.GET("/families", handler.handleListFamilies)
	api.GET("/guests", handler.handleListGuests)
	api.PATCH("/guests/:id", handler.handleUpdateGuest)
	api.PATCH("/families/:id/guests", handler.handleUpdateFamilyGuests)
	api.GET("/rsvp/stats", handler.handleStats)

	api.POST("/photos", handler.handleUploadPhoto)
	api.GET("/photos", handler.handleListPhotos)
	api.DELETE("/photos/:id", handler.requireAdmin, handler.handleDeletePhoto)

	admin := api.Group("/admin")
	admin.Use(handler.requireAdmin)
	admin.GET("/data", handler.handleAdminData)
	admin.POST("/guests", handler.handleAdminCreateGuest)
	admin.PATCH("/guests/:id", handler.handleAdminUpdateGuest)
	admin.DELETE("/guests/:id", handler.handleAdminDeleteGuest)
	admin.POST("/families", handler.handleAdminCreateFamily)
	admin.PATCH("/families/:id", handler.handleAdminRenameFamily)
	admin.DELETE("/families/:id", handler.handleAdminDeleteFamily)
	admin.GET("/votes", handler.handleAdminVotes)
	admin.GET("/events", handler.handleAdminEvents)

	return router, nil
}

type httpHandler struct {
	rsvpService     *rsvp.Service
	photoService    *photos.Service
	adminPassword   []byte
	realtime        *RealtimeDispatcher
	heartbeatPeriod time.Duration
	logger          *zap.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Content-Type", adminPasswordHeader},
		ExposeHeaders: []string{warningHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func requestMetrics(collectors *metrics.Collectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		collectors.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(started))
	}
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Wedding RSVP API"})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
