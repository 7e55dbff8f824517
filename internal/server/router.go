// Package server exposes the session engine over HTTP.
package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/socratic/internal/engine"
	"github.com/abhisek/socratic/internal/logger"
)

// NewRouter builds the gin router with all routes attached. mode
// "prod" selects gin release mode.
func NewRouter(e *engine.Engine, log *logger.Logger, mode string, allowOrigins []string) *gin.Engine {
	if strings.ToLower(mode) == "prod" || strings.ToLower(mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}
	if len(allowOrigins) == 1 && allowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	router.Use(cors.New(corsCfg))

	h := &handler{engine: e, log: log}

	router.POST("/session/start", h.startSession)
	router.POST("/session/turn", h.submitTurn)
	router.GET("/hint/:session_id", h.hint)
	router.POST("/retry/:session_id", h.retry)
	router.POST("/skip/:session_id", h.skip)
	router.GET("/progress/:session_id", h.progress)
	router.GET("/reflection/:session_id", h.reflect)
	router.GET("/dialogue/:session_id", h.dialogue)
	router.GET("/concepts", h.concepts)
	router.GET("/health", h.health)

	return router
}

// requestLogger logs one line per request after it completes.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
