package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with middleware, the RSVP routes, health,
// index and the JSON 404 and 405.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		RequestID(),
		RequestLogger(cfg.Logger),
		Recovery(cfg.Logger, cfg.Production),
		CORS(cfg.FrontendURL),
		Preflight(),
	)

	base := r.Group(cfg.BasePath)

	// health
	base.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "Wedding RSVP API is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Env,
		})
	})

	base.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Wedding Invitation API",
			"version": Version,
			"endpoints": gin.H{
				"health":     cfg.BasePath + "/health",
				"rsvp":       cfg.BasePath + "/rsvp/submit",
				"statistics": cfg.BasePath + "/rsvp/statistics",
			},
		})
	})

	RegisterRSVPRoutes(base, cfg)

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"message": "Method not allowed",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Endpoint not found",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	return r
}
