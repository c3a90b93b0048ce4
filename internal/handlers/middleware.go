package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
)

// RequestID propagates the caller's X-Request-Id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestLogger writes one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str(ctxRequestID, c.GetString(ctxRequestID)).
			Msg("request")
	}
}

// Recovery turns a panic into a JSON 500.
func Recovery(log zerolog.Logger, production bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str(ctxRequestID, c.GetString(ctxRequestID)).
			Msg("recovered from panic")

		body := gin.H{"success": false, "message": "Internal server error"}
		if !production {
			body["error"] = fmt.Sprint(recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

// CORS allows frontendURL, or any origin when it is empty. Preflight
// requests are answered with 200 and a disallowed origin with a JSON 403.
func CORS(frontendURL string) gin.HandlerFunc {
	allowed := strings.TrimRight(frontendURL, "/")
	apply := corsHandler(allowed)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		host := c.Request.Host
		sameOrigin := origin == "http://"+host || origin == "https://"+host
		if allowed != "" && origin != "" && origin != allowed && !sameOrigin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Origin not allowed"})
			return
		}
		apply(c)
	}
}

// Preflight answers every OPTIONS request with 200, including ones the
// CORS handler ignores because they carry no Origin.
func Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func corsHandler(allowed string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders:             []string{headerRequestID},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if allowed == "" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{allowed}
	}
	return cors.New(cfg)
}

// AdminAuth requires "Authorization: Bearer <token>". An empty token
// disables the check; production refuses to start without one.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		c.Next()
	}
}
